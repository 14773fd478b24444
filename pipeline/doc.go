// Package pipeline moves chunked data from a Source through zero or more
// Transforms to a Sink with bounded memory, ordered delivery and a single
// completion result.
//
// A Controller owns the stages and the bounded Links between them. One
// goroutine drives each run: every sweep visits the stages from the sink
// back to the source and lets each do at most one unit of work, so demand
// only reaches the source once downstream had its turn. A Link pauses its
// producer at the high watermark and resumes it at the low watermark.
//
// The first stage error aborts the run: demand stops, every stage is
// disposed and the result carries an errors.AppError with the stage name
// and index in its details.
//
//	res := pipeline.RunPipeline(ctx,
//	    pipeline.FromStrings("hello world\n", "goodbye\n"),
//	    []pipeline.Transform{pipeline.Uppercase()},
//	    pipeline.ToWriter(os.Stdout),
//	)
//	if !res.OK() {
//	    return res.Err
//	}
//
// Runs can also be started asynchronously:
//
//	c, err := pipeline.New(src, nil, sink, pipeline.WithEvents(bus))
//	run := c.Start(ctx)
//	defer run.Cancel()
//	res := run.Wait()
package pipeline
