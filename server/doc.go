// Package server provides the HTTP server for gostream services using Gin
// behind an h2c handler, so HTTP/2 cleartext clients stream as well as
// HTTP/1.1 clients.
//
// The server is a component.Component and takes part in the bootstrap
// lifecycle.
//
// # Middleware
//
// ApplyMiddleware installs the net/http chain from server/middleware
// (Recovery, RequestID, CORS, RequestLogger) around the whole handler and
// the Telemetry middleware on the Gin engine.
//
// # Endpoints
//
// RegisterDefaultEndpoints mounts /health, /alive, /ready, /info and
// /system from server/endpoint.
package server
