package catalog

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/kbukum/gostream/component"
)

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component ties a catalog into the application lifecycle: Start ensures
// the root exists and Health checks it is still there.
type Component struct {
	catalog *Catalog
}

// NewComponent wraps c.
func NewComponent(c *Catalog) *Component { return &Component{catalog: c} }

// Name returns the component name.
func (c *Component) Name() string { return "catalog" }

// Start creates the root directory when missing.
func (c *Component) Start(context.Context) error { return c.catalog.EnsureRoot() }

// Stop does nothing; the catalog holds no open handles.
func (c *Component) Stop(context.Context) error { return nil }

// Health is unhealthy when the root directory is gone.
func (c *Component) Health(context.Context) component.Health {
	ok, err := afero.DirExists(c.catalog.fs, c.catalog.Root())
	switch {
	case err != nil:
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: err.Error()}
	case !ok:
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "root directory missing"}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: c.catalog.Root()}
}

// Describe returns the summary line for the startup banner.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "File Catalog",
		Type:    "storage",
		Details: fmt.Sprintf("%s (%d mapped)", c.catalog.Root(), len(c.catalog.cfg.Files)),
	}
}
