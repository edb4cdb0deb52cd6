package envexec

import (
	"context"
	"time"
)

// ExecveParam is parameters to run process inside environment
type ExecveParam struct {
	// Args holds command line arguments, Args[0] is the program
	Args []string

	// Env specifies the environment of the process
	Env []string

	// Dir specifies the working directory of the process
	Dir string

	// Files specifies file descriptors for the child process (stdin, stdout, stderr)
	Files []uintptr

	// Confine restricts the file system view of the process if not nil
	Confine *Confinement

	// Process Limitations
	Limit Limit
}

// Limit defines the process running resource limits
type Limit struct {
	Time         time.Duration // Wall clock time limit
	Memory       Size          // Memory limit
	Proc         uint64        // Process / thread count limit
	Stack        Size          // Stack limit
	Output       Size          // Output limit
	StrictMemory bool          // Use stricter memory limit (rlimit)
}

// Usage defines the process resource usage sampled while it runs
type Usage struct {
	Memory  Size
	Threads uint64
}

// Confinement defines the directories visible inside a confined process.
// Directories are mounted at the same path as on the host.
type Confinement struct {
	ReadOnly  []string
	ReadWrite []string
}

// Process reference to the running process group
type Process interface {
	// Done returns a channel closed once the process exited. The process
	// is not reaped until Result is called, so Kill is safe after Done.
	Done() <-chan struct{}

	// Kill kills the whole process group
	Kill()

	// Usage samples the current resource usage
	Usage() Usage

	// Result waits until done, reaps the process and releases resources
	Result() RunnerResult
}

// Environment defines the interface to start process in sandbox environment
type Environment interface {
	Execve(context.Context, ExecveParam) (Process, error)
}

// Executor runs a single Cmd and reports its resource usage
type Executor interface {
	Execute(context.Context, *Cmd) (Result, error)
}
