// Package resilience provides retry with backoff and a bulkhead for
// bounding concurrent work.
//
//	err := resilience.RetryFunc(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) error {
//	    return sink.Consume(ctx, chunk)
//	})
//
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{Name: "delivery", MaxConcurrent: 16})
//	err := bh.Execute(ctx, func(ctx context.Context) error { return deliver(ctx) })
package resilience
