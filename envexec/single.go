package envexec

import (
	"context"
	"time"
)

// DefaultSampleInterval is the memory / thread sampling interval used when
// Single.SampleInterval is zero
const DefaultSampleInterval = 10 * time.Millisecond

var _ Executor = &Single{}

// Single defines the running instruction to run single
// exec restricted within the environment
type Single struct {
	// Environment starts the sandboxed process
	Environment Environment

	// SampleInterval defines how often memory and thread count are sampled
	SampleInterval time.Duration
}

// Execute starts the cmd, waits for it and returns the measured usage.
// The process group is killed and reaped before Execute returns on every
// path, including context cancellation.
func (s *Single) Execute(ctx context.Context, c *Cmd) (Result, error) {
	interval := s.SampleInterval
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return runSingle(ctx, s.Environment, c, interval)
}
