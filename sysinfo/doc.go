// Package sysinfo takes one-shot samples of host memory, CPU and load
// averages. Periodic sampling is left to callers.
package sysinfo
