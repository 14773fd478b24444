package bootstrap

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kbukum/gostream/component"
)

// writeSummary prints the startup banner: components with their live
// health, then the HTTP routes.
func writeSummary(ctx context.Context, w io.Writer, name, version string, took time.Duration, reg *component.Registry) {
	fmt.Fprintf(w, "\n%s %s started in %.2fs\n\n", name, version, took.Seconds())

	reports := reg.Reports(ctx)
	if len(reports) == 0 {
		fmt.Fprintf(w, "   └── No components registered\n")
	}
	healthy := 0
	for i, r := range reports {
		line := fmt.Sprintf("   %s %s %s", branch(i, len(reports)), healthMark(r.Health.Status), r.Name)
		if r.Type != "" {
			line += " [" + r.Type + "]"
		}
		if r.Details != "" {
			line += ": " + r.Details
		}
		if r.Port > 0 {
			line += fmt.Sprintf(" (:%d)", r.Port)
		}
		fmt.Fprintln(w, line)
		if r.Health.Status == component.StatusHealthy {
			healthy++
		}
	}
	if len(reports) > 0 {
		fmt.Fprintf(w, "\n%d/%d components healthy\n", healthy, len(reports))
	}

	routes := reg.Routes()
	if len(routes) > 0 {
		fmt.Fprintf(w, "\nRoutes\n")
		for i, r := range routes {
			fmt.Fprintf(w, "   %s %-6s %s -> %s\n", branch(i, len(routes)), r.Method, r.Path, r.Handler)
		}
	}
	fmt.Fprintln(w)
}

func branch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthMark(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✓"
	case component.StatusDegraded:
		return "!"
	default:
		return "✗"
	}
}
