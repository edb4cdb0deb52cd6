package client

import (
	"context"
	"errors"

	"github.com/hydrogen-oj/judger/types"
)

var errNotFinished = errors.New("task not finished")

var (
	_ Client = &Local{}
	_ Task   = &LocalTask{}
)

// Local is a client serving a fixed set of tasks, the channel is closed
// after the last one
type Local struct {
	tasks chan Task
}

// NewLocal creates client for the given tasks
func NewLocal(tasks ...Task) *Local {
	c := make(chan Task, len(tasks))
	for _, t := range tasks {
		c <- t
	}
	close(c)
	return &Local{tasks: c}
}

// C returns the task channel
func (l *Local) C() <-chan Task {
	return l.tasks
}

// LocalTask forwards progress to the reporter and records the outcome
type LocalTask struct {
	task     *types.JudgeTask
	reporter Reporter

	done   chan struct{}
	result *types.JudgeResult
	err    error
}

// NewLocalTask creates task reporting to r
func NewLocalTask(t *types.JudgeTask, r Reporter) *LocalTask {
	return &LocalTask{
		task:     t,
		reporter: r,
		done:     make(chan struct{}),
	}
}

// Param returns the judge task
func (t *LocalTask) Param() *types.JudgeTask {
	return t.task
}

// Compiled forwards to the reporter
func (t *LocalTask) Compiled(p *types.ProgressCompiled) {
	t.reporter.Compiled(p)
}

// Progressed forwards to the reporter
func (t *LocalTask) Progressed(p *types.ProgressProgressed) {
	t.reporter.Progressed(p)
}

// Finished reports the result, a failed report becomes the task error
func (t *LocalTask) Finished(r *types.JudgeResult, err error) {
	defer close(t.done)

	t.result, t.err = r, err
	if err != nil {
		return
	}
	t.err = t.reporter.Finished(r)
}

// Wait waits for the task to finish or ctx to be done
func (t *LocalTask) Wait(ctx context.Context) (*types.JudgeResult, error) {
	select {
	case <-t.done:
		return t.result, t.err
	default:
	}
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return nil, errors.Join(errNotFinished, ctx.Err())
	}
}
