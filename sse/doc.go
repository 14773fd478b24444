// Package sse streams pipeline run events to HTTP clients as Server-Sent
// Events.
//
// A Hub owns the connected clients; each client subscribes with a glob
// filter over topics such as "run:<id>". ForwardRuns bridges a pipeline
// event bus into the hub, and RunsHandler serves the stream:
//
//	hub := sse.NewHub(log)
//	go hub.Run()
//	stop := sse.ForwardRuns(bus, hub)
//	defer stop()
//	router.GET("/runs/events", sse.RunsHandler(hub, 0))
package sse
