// Package envexec runs a single command inside an Environment and measures
// its usage. A watchdog goroutine enforces the wall clock and memory limits
// by killing the process group, classifying the termination cause.
package envexec
