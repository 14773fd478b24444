// Package endpoint provides the operational Gin handlers every service
// mounts: health, liveness, readiness, build info and a host sample.
package endpoint
