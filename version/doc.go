// Package version reports build information for the running binary.
//
//	go build -ldflags "-X github.com/kbukum/gostream/version.Version=1.0.0"
package version
