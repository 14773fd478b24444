// Command uppercase streams a few lines of text through an uppercase
// transform to the console.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kbukum/gostream/logger"
	"github.com/kbukum/gostream/pipeline"
)

var lines = []string{
	"hello world\n",
	"this is a test\n",
	"node.js streams are powerful\n",
	"goodbye\n",
}

func main() {
	logCfg := logger.Config{Level: "warn", Output: "stderr", ServiceName: "uppercase"}
	logger.Init(&logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res := pipeline.RunPipeline(ctx,
		pipeline.FromStrings(lines...),
		[]pipeline.Transform{pipeline.Uppercase()},
		pipeline.ToWriter(os.Stdout),
		pipeline.WithName("uppercase"),
		pipeline.WithCallback(report),
	)
	if !res.OK() {
		os.Exit(1)
	}
}

func report(res pipeline.Result) {
	if res.OK() {
		fmt.Println("Pipeline succeeded")
		return
	}
	fmt.Fprintf(os.Stderr, "Pipeline failed: %v\n", res.Err)
}
