// Package events is an in-process publish/subscribe bus with typed
// payloads. Handlers are registered per event kind and invoked
// synchronously, in registration order, by Publish.
//
//	bus := events.NewBus[pipeline.RunEvent]()
//	unsubscribe := bus.Subscribe(pipeline.EventRunCompleted, func(e pipeline.RunEvent) {
//	    log.Info("run done", logger.Fields("run_id", e.RunID))
//	})
//	defer unsubscribe()
package events
