// Package errors provides the structured error type shared by the pipeline
// core and the HTTP surface. Every error carries a machine-readable code, an
// HTTP status mapping and retryable detection, and serialises to the response
// envelope returned to clients.
package errors
