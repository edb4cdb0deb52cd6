package judger

import (
	"context"
	"testing"

	"github.com/hydrogen-oj/judger/client"
	"github.com/hydrogen-oj/judger/types"
)

type chanClient chan client.Task

func (c chanClient) C() <-chan client.Task {
	return c
}

type recordTask struct {
	recordProgress
	param  *types.JudgeTask
	result *types.JudgeResult
	err    error
	done   bool
}

func (t *recordTask) Param() *types.JudgeTask {
	return t.param
}

func (t *recordTask) Finished(rt *types.JudgeResult, err error) {
	t.result, t.err, t.done = rt, err, true
}

func TestLoop(t *testing.T) {
	e := newTestEnv(t, TypeDefault, 50, 50)
	e.exec.check = checkerExits(0, 1)

	bad := *e.task
	bad.Language = "rust"
	tasks := []*recordTask{{param: e.task}, {param: &bad}}

	c := make(chanClient, len(tasks))
	for _, rt := range tasks {
		c <- rt
	}
	close(c)
	e.j.Client = c
	e.j.Loop(context.Background())

	if !tasks[0].done || tasks[0].err != nil || tasks[0].result.Score != 50 {
		t.Errorf("task 1: %+v %v", tasks[0].result, tasks[0].err)
	}
	if len(tasks[0].progressed) != 2 {
		t.Errorf("task 1: got %d progress reports", len(tasks[0].progressed))
	}
	if !tasks[1].done || !IsConfigError(tasks[1].err) || tasks[1].result != nil {
		t.Errorf("task 2: %+v %v", tasks[1].result, tasks[1].err)
	}
}

func TestLoopCanceled(t *testing.T) {
	e := newTestEnv(t, TypeDefault, 100)
	e.j.Client = make(chanClient)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e.j.Loop(ctx)
}
