// Package delivery serves catalog files over HTTP. Each GET runs a
// pipeline from the file source through optional named transforms into a
// ResponseSink, so a slow client pauses the file read instead of buffering
// the file in memory.
package delivery
