package envexec

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/criyle/go-sandbox/runner"
)

// runSingle runs Cmd inside the given environment
func runSingle(pc context.Context, m Environment, c *Cmd, interval time.Duration) (result Result, err error) {
	fds, err := prepareCmdFd(c)
	if err != nil {
		return result, err
	}

	// run cmd and wait for result
	w := &waiter{limit: cmdLimit(c), interval: interval}
	rt, cause, err := runSingleWait(pc, m, c, fds, w)
	if err != nil {
		result.Cause = CauseSpawnFailed
		result.Error = err.Error()
		return result, &SandboxError{Kind: SpawnFailed, Err: err}
	}

	result = Result{
		Error:   rt.Error,
		Time:    rt.RunningTime,
		CPUTime: rt.Time,
		Memory:  max(rt.Memory, w.peak.Memory),
	}
	switch rt.Status {
	case runner.StatusNormal, runner.StatusNonzeroExitStatus:
		result.Cause = CauseNormal
		result.ExitStatus = rt.ExitStatus
	case runner.StatusSignalled:
		result.Cause = CauseSignaled
		result.ExitStatus = 128 + rt.ExitStatus
	default:
		return result, &SandboxError{Kind: WaitFailed, Err: errors.New(rt.Error)}
	}
	if cause.Killed() {
		result.Cause = cause
	}
	if err := pc.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func runSingleWait(pc context.Context, m Environment, c *Cmd, fds []*os.File, w *waiter) (RunnerResult, Cause, error) {
	ctx, cancel := context.WithCancel(pc)
	defer cancel()

	process, err := runSingleExecve(ctx, m, c, fds)
	if err != nil {
		return RunnerResult{}, CauseNormal, err
	}

	// waiter kills the process group on limit or cancellation,
	// Result reaps the process so it must come after the waiter returns
	cause := w.Wait(ctx, process)
	return process.Result(), cause, nil
}

func runSingleExecve(ctx context.Context, m Environment, c *Cmd, fds []*os.File) (Process, error) {
	defer closeFiles(fds...)

	execParam := ExecveParam{
		Args:    c.Args,
		Env:     c.Env,
		Dir:     c.Dir,
		Files:   getFdArray(fds),
		Confine: c.Confine,
		Limit:   cmdLimit(c),
	}
	return m.Execve(ctx, execParam)
}

func cmdLimit(c *Cmd) Limit {
	stackLimit := c.StackLimit
	if c.MemoryLimit > 0 && stackLimit > c.MemoryLimit {
		stackLimit = c.MemoryLimit
	}
	return Limit{
		Time:         c.TimeLimit,
		Memory:       c.MemoryLimit,
		Proc:         c.ProcLimit,
		Stack:        stackLimit,
		Output:       c.OutputLimit,
		StrictMemory: c.StrictMemoryLimit,
	}
}
