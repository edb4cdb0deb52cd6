package envexec

import (
	"context"
	"time"
)

// waiter watches a running process and kills its group when a limit is
// breached. Memory and thread sampling is best-effort: a spike shorter
// than the sample interval may be missed.
type waiter struct {
	limit    Limit
	interval time.Duration

	// peak usage observed by sampling
	peak Usage
}

// Wait blocks until the process exits, a limit is breached or ctx is done.
// It returns the cause if the process was killed for a limit, otherwise
// CauseNormal.
func (w *waiter) Wait(ctx context.Context, p Process) Cause {
	var timeout <-chan time.Time
	if w.limit.Time > 0 {
		timer := time.NewTimer(w.limit.Time)
		defer timer.Stop()
		timeout = timer.C
	}

	var tick <-chan time.Time
	if w.interval > 0 && (w.limit.Memory > 0 || w.limit.Proc > 0) {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-p.Done():
			return CauseNormal

		case <-timeout:
			return w.kill(p, CauseTimeLimitExceeded)

		case <-tick:
			u := p.Usage()
			w.observe(u)
			if w.limit.Memory > 0 && u.Memory > w.limit.Memory {
				return w.kill(p, CauseMemoryLimitExceeded)
			}
			if w.limit.Proc > 0 && u.Threads > w.limit.Proc {
				return w.kill(p, CauseProcessLimitExceeded)
			}

		case <-ctx.Done():
			w.kill(p, CauseNormal)
			return CauseNormal
		}
	}
}

// kill kills the process group unless the process already exited.
// The exited process is not reaped yet, so its pid cannot be reused
// between the check and the kill.
func (w *waiter) kill(p Process, c Cause) Cause {
	select {
	case <-p.Done():
		return CauseNormal
	default:
	}
	p.Kill()
	return c
}

func (w *waiter) observe(u Usage) {
	if u.Memory > w.peak.Memory {
		w.peak.Memory = u.Memory
	}
	if u.Threads > w.peak.Threads {
		w.peak.Threads = u.Threads
	}
}
