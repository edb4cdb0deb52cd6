package env

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/hydrogen-oj/judger/envexec"
	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

type nopLogger struct{}

func (nopLogger) Info(...any)  {}
func (nopLogger) Warn(...any)  {}
func (nopLogger) Error(...any) {}

func newTestEnvironment(t *testing.T, c Config) *environment {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping sandbox test in short mode")
	}
	c.MountConf = filepath.Join(t.TempDir(), "mount.yaml")
	c.Logger = nopLogger{}
	e, _, err := NewEnvironment(c)
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	return e.(*environment)
}

func newTestExecutor(t *testing.T) envexec.Executor {
	t.Helper()
	return &envexec.Single{Environment: newTestEnvironment(t, Config{}), SampleInterval: 5 * time.Millisecond}
}

// namespacedExecutor skips when the host does not allow new namespaces
func namespacedExecutor(t *testing.T, c Config) envexec.Executor {
	t.Helper()
	e := newTestEnvironment(t, c)
	if e.pidFlags == 0 {
		t.Skip("pid namespace is not available")
	}
	return &envexec.Single{Environment: e, SampleInterval: 5 * time.Millisecond}
}

// running reports whether any live process has marker in its command line
func running(t *testing.T, marker string) bool {
	t.Helper()
	procs, err := procfs.AllProcs()
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range procs {
		args, err := p.CmdLine()
		if err != nil {
			continue
		}
		if strings.Contains(strings.Join(args, " "), marker) {
			return true
		}
	}
	return false
}

func TestExecuteExitStatus(t *testing.T) {
	ex := newTestExecutor(t)
	rt, err := ex.Execute(context.Background(), &envexec.Cmd{
		Args:      []string{"/bin/sh", "-c", "exit 3"},
		TimeLimit: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rt.Cause != envexec.CauseNormal || rt.ExitStatus != 3 {
		t.Errorf("got %v exit %d, want normal exit 3", rt.Cause, rt.ExitStatus)
	}
}

func TestExecuteRedirect(t *testing.T) {
	ex := newTestExecutor(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "a.in")
	out := filepath.Join(dir, "a.out")
	if err := os.WriteFile(in, []byte("hello\n"), 0644); err != nil {
		t.Fatal(err)
	}
	rt, err := ex.Execute(context.Background(), &envexec.Cmd{
		Args:      []string{"/bin/cat"},
		Stdin:     in,
		Stdout:    out,
		TimeLimit: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rt.ExitStatus != 0 {
		t.Fatalf("cat exited with %d", rt.ExitStatus)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "hello\n" {
		t.Errorf("output = %q", b)
	}
	if rt.Memory == 0 {
		t.Error("memory should be measured")
	}
}

func TestExecuteTimeLimit(t *testing.T) {
	ex := newTestExecutor(t)
	limit := 200 * time.Millisecond
	start := time.Now()
	rt, err := ex.Execute(context.Background(), &envexec.Cmd{
		Args:      []string{"/bin/sh", "-c", "sleep 30 & sleep 30"},
		TimeLimit: limit,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rt.Cause != envexec.CauseTimeLimitExceeded {
		t.Errorf("cause = %v, want TLE", rt.Cause)
	}
	if rt.Time < limit {
		t.Errorf("time %v below the limit %v", rt.Time, limit)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("watchdog did not kill the process group")
	}
}

func TestExecuteFastExitNotTimedOut(t *testing.T) {
	ex := newTestExecutor(t)
	rt, err := ex.Execute(context.Background(), &envexec.Cmd{
		Args:      []string{"/bin/true"},
		TimeLimit: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rt.Cause != envexec.CauseNormal || rt.ExitStatus != 0 {
		t.Errorf("got %v exit %d", rt.Cause, rt.ExitStatus)
	}
}

func TestExecuteSpawnFailed(t *testing.T) {
	ex := newTestExecutor(t)
	rt, err := ex.Execute(context.Background(), &envexec.Cmd{
		Args:      []string{"/nonexistent/binary"},
		TimeLimit: time.Second,
	})
	if !envexec.IsSpawnFailed(err) {
		t.Fatalf("expected spawn failure, got %v", err)
	}
	if rt.Cause != envexec.CauseSpawnFailed {
		t.Errorf("cause = %v", rt.Cause)
	}
}

func TestExecuteCancel(t *testing.T) {
	ex := newTestExecutor(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := ex.Execute(ctx, &envexec.Cmd{
		Args:      []string{"/bin/sleep", "30"},
		TimeLimit: time.Minute,
	})
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestExecuteKillsDetachedDescendant(t *testing.T) {
	ex := namespacedExecutor(t, Config{})
	marker := fmt.Sprintf("37.%d", os.Getpid()%1000)
	rt, err := ex.Execute(context.Background(), &envexec.Cmd{
		Args:      []string{"/bin/sh", "-c", "setsid sleep " + marker + " & sleep 30"},
		TimeLimit: 300 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rt.Cause != envexec.CauseTimeLimitExceeded {
		t.Errorf("cause = %v, want TLE", rt.Cause)
	}
	if running(t, "sleep "+marker) {
		t.Error("detached descendant survived the time limit")
	}
}

func TestExecuteKillsDescendantAfterExit(t *testing.T) {
	ex := namespacedExecutor(t, Config{})
	marker := fmt.Sprintf("38.%d", os.Getpid()%1000)
	rt, err := ex.Execute(context.Background(), &envexec.Cmd{
		Args:      []string{"/bin/sh", "-c", "setsid sleep " + marker + " & exit 0"},
		TimeLimit: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rt.Cause != envexec.CauseNormal || rt.ExitStatus != 0 {
		t.Errorf("got %v exit %d", rt.Cause, rt.ExitStatus)
	}
	if running(t, "sleep "+marker) {
		t.Error("descendant survived its parent")
	}
}

func TestExecuteMemoryLimit(t *testing.T) {
	ex := newTestExecutor(t)
	limit := envexec.Size(32 << 20)
	rt, err := ex.Execute(context.Background(), &envexec.Cmd{
		Args:        []string{"/bin/sh", "-c", `x=$(head -c 200000000 /dev/zero | tr '\0' a); echo ${#x}`},
		TimeLimit:   20 * time.Second,
		MemoryLimit: limit,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rt.Cause != envexec.CauseMemoryLimitExceeded && rt.Memory <= limit {
		t.Errorf("got %v with %v, want memory limit exceeded", rt.Cause, rt.Memory)
	}
}

func TestExecuteProcLimit(t *testing.T) {
	ex := &envexec.Single{
		Environment:    newTestEnvironment(t, Config{CgroupPrefix: "hoj-judger-test"}),
		SampleInterval: 5 * time.Millisecond,
	}
	start := time.Now()
	rt, err := ex.Execute(context.Background(), &envexec.Cmd{
		Args:      []string{"/bin/sh", "-c", "for i in 1 2 3 4 5 6 7 8; do sleep 5 & done; wait"},
		TimeLimit: 10 * time.Second,
		ProcLimit: 4,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rt.Cause != envexec.CauseProcessLimitExceeded {
		t.Errorf("cause = %v, want PLE", rt.Cause)
	}
	if time.Since(start) > 4*time.Second {
		t.Error("process limit was not enforced before the children finished")
	}
}

func TestExecuteConfined(t *testing.T) {
	ex := namespacedExecutor(t, Config{})
	hidden := t.TempDir()
	if err := os.WriteFile(filepath.Join(hidden, "secret"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	ro := t.TempDir()
	if err := os.WriteFile(filepath.Join(ro, "in"), []byte("ok\n"), 0644); err != nil {
		t.Fatal(err)
	}
	rw := t.TempDir()
	script := fmt.Sprintf(`[ -e %[1]s/secret ] && exit 7
cat %[2]s/in || exit 8
echo x > %[2]s/y 2>/dev/null && exit 9
echo wrote > %[3]s/out`, hidden, ro, rw)

	rt, err := ex.Execute(context.Background(), &envexec.Cmd{
		Args:      []string{"/bin/sh", "-c", script},
		TimeLimit: 5 * time.Second,
		Confine:   &envexec.Confinement{ReadOnly: []string{ro}, ReadWrite: []string{rw}},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rt.Cause != envexec.CauseNormal || rt.ExitStatus != 0 {
		t.Fatalf("got %v exit %d", rt.Cause, rt.ExitStatus)
	}
	b, err := os.ReadFile(filepath.Join(rw, "out"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "wrote\n" {
		t.Errorf("out = %q", b)
	}
}

func TestBuildMountsFileBind(t *testing.T) {
	mounts, err := buildMounts(getDefaultMount(), &envexec.Confinement{ReadWrite: []string{t.TempDir()}})
	if err != nil {
		t.Fatal(err)
	}
	var mknod int
	for _, m := range mounts {
		if m.MakeNod {
			mknod++
		}
	}
	// only /dev/null is a file bind
	if mknod != 1 {
		t.Errorf("got %d mknod mounts, want 1", mknod)
	}
}

func TestDescendants(t *testing.T) {
	pids := descendants(os.Getpid())
	if len(pids) == 0 || pids[0] != os.Getpid() {
		t.Fatalf("descendants = %v, want to start with %d", pids, os.Getpid())
	}

	cmd := exec.Command("/bin/sleep", "5")
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	defer cmd.Wait()
	defer cmd.Process.Kill()
	if !slices.Contains(descendants(os.Getpid()), cmd.Process.Pid) {
		t.Errorf("child %d not found", cmd.Process.Pid)
	}
}

func TestPrepareRLimits(t *testing.T) {
	limit := envexec.Limit{Time: 1500 * time.Millisecond, Memory: 64 << 20, Proc: 4}
	hasNproc := func(procRLimit bool) bool {
		for _, r := range prepareRLimits(limit, procRLimit) {
			if r.Res == unix.RLIMIT_NPROC {
				return true
			}
		}
		return false
	}
	if hasNproc(false) {
		t.Error("RLIMIT_NPROC should be opt-in")
	}
	if !hasNproc(true) {
		t.Error("RLIMIT_NPROC missing")
	}
}

func TestParseMountConfig(t *testing.T) {
	m, err := parseMountConfig(&Mounts{Mount: []Mount{
		{Type: "bind", Source: "/usr", Target: "/usr", Readonly: true},
		{Type: "tmpfs", Target: "tmp", Data: "size=8m"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if m[0].Target != "usr" || !m[0].Readonly {
		t.Errorf("unexpected mount %+v", m[0])
	}
	if _, err := parseMountConfig(&Mounts{Mount: []Mount{{Type: "overlay"}}}); err == nil {
		t.Error("expected invalid mount type error")
	}
	if relTarget("/home/judge/w/") != "home/judge/w" {
		t.Errorf("relTarget = %q", relTarget("/home/judge/w/"))
	}
}
