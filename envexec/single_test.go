package envexec

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/criyle/go-sandbox/runner"
)

type fakeProcess struct {
	done   chan struct{}
	once   sync.Once
	killed atomic.Bool
	usage  Usage
	result RunnerResult
}

func newFakeProcess(rt RunnerResult) *fakeProcess {
	return &fakeProcess{done: make(chan struct{}), result: rt}
}

func (p *fakeProcess) exit() {
	p.once.Do(func() { close(p.done) })
}

func (p *fakeProcess) Done() <-chan struct{} {
	return p.done
}

func (p *fakeProcess) Kill() {
	p.killed.Store(true)
	p.exit()
}

func (p *fakeProcess) Usage() Usage {
	return p.usage
}

func (p *fakeProcess) Result() RunnerResult {
	<-p.done
	if p.killed.Load() {
		return RunnerResult{
			Status:      runner.StatusSignalled,
			ExitStatus:  int(syscall.SIGKILL),
			RunningTime: p.result.RunningTime,
			Memory:      p.result.Memory,
		}
	}
	return p.result
}

type fakeEnv struct {
	proc  *fakeProcess
	err   error
	param ExecveParam
}

func (e *fakeEnv) Execve(_ context.Context, param ExecveParam) (Process, error) {
	e.param = param
	if e.err != nil {
		return nil, e.err
	}
	return e.proc, nil
}

func exited(rt RunnerResult) *fakeProcess {
	p := newFakeProcess(rt)
	p.exit()
	return p
}

func TestSingleExitStatus(t *testing.T) {
	tests := []struct {
		name       string
		rt         RunnerResult
		wantCause  Cause
		wantStatus int
	}{
		{"zero", RunnerResult{Status: runner.StatusNormal, RunningTime: 20 * time.Millisecond}, CauseNormal, 0},
		{"nonzero", RunnerResult{Status: runner.StatusNonzeroExitStatus, ExitStatus: 3}, CauseNormal, 3},
		{"signaled", RunnerResult{Status: runner.StatusSignalled, ExitStatus: int(syscall.SIGSEGV)}, CauseSignaled, 128 + int(syscall.SIGSEGV)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := &fakeEnv{proc: exited(tc.rt)}
			s := &Single{Environment: env}
			rt, err := s.Execute(context.Background(), &Cmd{Args: []string{"a"}, TimeLimit: time.Second})
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if rt.Cause != tc.wantCause || rt.ExitStatus != tc.wantStatus {
				t.Errorf("got %v/%d, want %v/%d", rt.Cause, rt.ExitStatus, tc.wantCause, tc.wantStatus)
			}
			if rt.Time != tc.rt.RunningTime {
				t.Errorf("time = %v, want %v", rt.Time, tc.rt.RunningTime)
			}
			if env.proc.killed.Load() {
				t.Error("exited process should not be killed")
			}
			if len(env.param.Files) != 3 {
				t.Errorf("expected 3 fds, got %d", len(env.param.Files))
			}
		})
	}
}

func TestSingleTimeLimit(t *testing.T) {
	p := newFakeProcess(RunnerResult{RunningTime: 60 * time.Millisecond})
	s := &Single{Environment: &fakeEnv{proc: p}}
	rt, err := s.Execute(context.Background(), &Cmd{TimeLimit: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rt.Cause != CauseTimeLimitExceeded {
		t.Errorf("cause = %v, want TLE", rt.Cause)
	}
	if !p.killed.Load() {
		t.Error("process group should be killed on timeout")
	}
	if rt.ExitStatus == 0 {
		t.Error("killed process must not report zero exit status")
	}
}

func TestSingleExitedBeforeDeadline(t *testing.T) {
	// deadline fires while the process has already exited
	for i := 0; i < 50; i++ {
		p := exited(RunnerResult{Status: runner.StatusNormal})
		s := &Single{Environment: &fakeEnv{proc: p}}
		rt, err := s.Execute(context.Background(), &Cmd{TimeLimit: time.Nanosecond})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if rt.Cause != CauseNormal || p.killed.Load() {
			t.Fatalf("exited process misreported: %v killed=%v", rt.Cause, p.killed.Load())
		}
	}
}

func TestSingleMemoryLimit(t *testing.T) {
	p := newFakeProcess(RunnerResult{Memory: 1 << 20})
	p.usage = Usage{Memory: 9 << 20, Threads: 1}
	s := &Single{Environment: &fakeEnv{proc: p}, SampleInterval: time.Millisecond}
	rt, err := s.Execute(context.Background(), &Cmd{TimeLimit: 5 * time.Second, MemoryLimit: 8 << 20})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rt.Cause != CauseMemoryLimitExceeded {
		t.Errorf("cause = %v, want MLE", rt.Cause)
	}
	if rt.Memory != 9<<20 {
		t.Errorf("memory = %v, want sampled peak", rt.Memory)
	}
}

func TestSingleMemoryAtLimit(t *testing.T) {
	p := newFakeProcess(RunnerResult{Status: runner.StatusNormal})
	p.usage = Usage{Memory: 8 << 20, Threads: 1}
	s := &Single{Environment: &fakeEnv{proc: p}, SampleInterval: time.Millisecond}
	go func() {
		time.Sleep(20 * time.Millisecond)
		p.exit()
	}()
	rt, err := s.Execute(context.Background(), &Cmd{TimeLimit: 5 * time.Second, MemoryLimit: 8 << 20})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rt.Cause != CauseNormal || p.killed.Load() {
		t.Errorf("usage at limit must not be killed: %v", rt.Cause)
	}
}

func TestSingleProcLimit(t *testing.T) {
	p := newFakeProcess(RunnerResult{})
	p.usage = Usage{Threads: 5}
	s := &Single{Environment: &fakeEnv{proc: p}, SampleInterval: time.Millisecond}
	rt, err := s.Execute(context.Background(), &Cmd{TimeLimit: 5 * time.Second, ProcLimit: 4})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rt.Cause != CauseProcessLimitExceeded {
		t.Errorf("cause = %v, want PLE", rt.Cause)
	}
}

func TestSingleSpawnFailed(t *testing.T) {
	s := &Single{Environment: &fakeEnv{err: os.ErrNotExist}}
	rt, err := s.Execute(context.Background(), &Cmd{Args: []string{"/no/such/file"}})
	if !IsSpawnFailed(err) {
		t.Fatalf("expected spawn failure, got %v", err)
	}
	if rt.Cause != CauseSpawnFailed {
		t.Errorf("cause = %v, want SpawnFailed", rt.Cause)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("spawn error should wrap the cause")
	}
}

func TestSingleWaitFailed(t *testing.T) {
	p := exited(RunnerResult{Status: runner.StatusRunnerError, Error: "wait4: interrupted"})
	s := &Single{Environment: &fakeEnv{proc: p}}
	_, err := s.Execute(context.Background(), &Cmd{})
	var se *SandboxError
	if !errors.As(err, &se) || se.Kind != WaitFailed {
		t.Fatalf("expected wait failure, got %v", err)
	}
}

func TestSingleMissingStdin(t *testing.T) {
	env := &fakeEnv{proc: exited(RunnerResult{})}
	s := &Single{Environment: env}
	_, err := s.Execute(context.Background(), &Cmd{Stdin: filepath.Join(t.TempDir(), "missing.in")})
	if err == nil || IsSpawnFailed(err) {
		t.Fatalf("expected I/O error, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not exist error, got %v", err)
	}
}

func TestSingleStdoutCreated(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	env := &fakeEnv{proc: exited(RunnerResult{})}
	s := &Single{Environment: env}
	if _, err := s.Execute(context.Background(), &Cmd{Stdout: out, Stderr: out}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("stdout file not created: %v", err)
	}
	if env.param.Files[1] != env.param.Files[2] {
		t.Error("stdout and stderr with the same path should share the descriptor")
	}
}

func TestSingleCancel(t *testing.T) {
	p := newFakeProcess(RunnerResult{})
	s := &Single{Environment: &fakeEnv{proc: p}}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := s.Execute(ctx, &Cmd{TimeLimit: time.Minute})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if !p.killed.Load() {
		t.Error("process should be killed on cancel")
	}
}

func TestCauseString(t *testing.T) {
	for i, s := range causeToString {
		c, err := StringToCause(s)
		if err != nil || c != Cause(i) {
			t.Errorf("StringToCause(%q) = %v, %v", s, c, err)
		}
	}
	if Cause(100).String() != "Invalid" {
		t.Error("out of range cause should be invalid")
	}
}
