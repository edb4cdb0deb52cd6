package envexec

import (
	"time"

	"github.com/criyle/go-sandbox/runner"
)

// Size represent data size in bytes
type Size = runner.Size

// RunnerResult represent process finish result
type RunnerResult = runner.Result

// Cmd defines instruction to run a program in sandbox environment
type Cmd struct {
	// exec argument, environment and working directory
	Args []string
	Env  []string
	Dir  string

	// host file paths bound to the standard streams, empty for /dev/null
	Stdin  string
	Stdout string
	Stderr string

	// resource limits
	TimeLimit         time.Duration
	MemoryLimit       Size
	ProcLimit         uint64
	StackLimit        Size
	OutputLimit       Size
	StrictMemoryLimit bool

	// Confine restricts the file system view if not nil
	Confine *Confinement
}

// Result defines the running result for single Cmd.
// The numbers are raw measurements, comparing them with the limits is
// left to the caller.
type Result struct {
	Cause Cause

	// ExitStatus is the exit code, or 128 + signal if signaled
	ExitStatus int

	Error string

	Time    time.Duration // wall clock
	CPUTime time.Duration // user + system
	Memory  Size          // peak resident, byte
}

// TimeMS returns the wall time in milliseconds, rounded up so that it is
// above a limit exactly when Time is
func (r Result) TimeMS() int64 {
	return int64((r.Time + time.Millisecond - 1) / time.Millisecond)
}

// MemoryKiB returns the peak memory in KiB, rounded up
func (r Result) MemoryKiB() int64 {
	return int64((r.Memory.Byte() + 1<<10 - 1) >> 10)
}

// KiB converts KiB to Size
func KiB(n int64) Size {
	if n <= 0 {
		return 0
	}
	return Size(n) << 10
}

// MS converts milliseconds to time.Duration
func MS(n int64) time.Duration {
	return time.Duration(n) * time.Millisecond
}
