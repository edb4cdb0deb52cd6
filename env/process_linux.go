package env

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/criyle/go-sandbox/pkg/cgroup"
	"github.com/criyle/go-sandbox/runner"
	"github.com/hydrogen-oj/judger/envexec"
	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

var _ envexec.Process = &process{}

const maxTracked = 4096

// process is the leader of its own session, and the init of its own pid
// namespace when the environment supports it. Exit is observed with
// waitid(WNOWAIT) so the zombie keeps the pid (and the group id) reserved
// until Result reaps it.
type process struct {
	pid     int
	cg      cgroup.Cgroup
	start   time.Time
	finish  time.Time
	waitErr error
	done    chan struct{}
	cleanUp func()

	mu     sync.Mutex
	reaped bool

	once   sync.Once
	result runner.Result
}

func newProcess(pid int, cg cgroup.Cgroup, cleanUp func()) *process {
	p := &process{
		pid:     pid,
		cg:      cg,
		start:   time.Now(),
		done:    make(chan struct{}),
		cleanUp: cleanUp,
	}
	go p.wait()
	return p
}

func (p *process) wait() {
	defer close(p.done)

	var info unix.Siginfo
	for {
		err := unix.Waitid(unix.P_PID, p.pid, &info, unix.WEXITED|unix.WNOWAIT, nil)
		if err == unix.EINTR {
			continue
		}
		p.waitErr = err
		break
	}
	p.finish = time.Now()
}

func (p *process) Done() <-chan struct{} {
	return p.done
}

// Kill kills every process of the execution, it is a no-op once reaped
func (p *process) Kill() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.reaped {
		return
	}
	p.killAll()
}

// Usage samples the peak resident memory of the leader and the thread
// count and resident memory of every process of the execution
func (p *process) Usage() envexec.Usage {
	p.mu.Lock()
	defer p.mu.Unlock()

	var u envexec.Usage
	if p.reaped {
		return u
	}
	if proc, err := procfs.NewProc(p.pid); err == nil {
		if st, err := proc.NewStatus(); err == nil {
			u.Memory = envexec.Size(st.VmHWM)
		}
	}
	var rss envexec.Size
	for _, pid := range p.pids() {
		proc, err := procfs.NewProc(pid)
		if err != nil {
			continue
		}
		st, err := proc.Stat()
		if err != nil {
			continue
		}
		u.Threads += uint64(st.NumThreads)
		rss += envexec.Size(st.ResidentMemory())
	}
	u.Memory = max(u.Memory, rss)
	return u
}

// pids lists the processes of the execution, from the cgroup if there is
// one, otherwise by walking the process tree of the leader
func (p *process) pids() []int {
	if p.cg != nil {
		if pids, err := p.cg.Processes(); err == nil && len(pids) > 0 {
			return pids
		}
	}
	return descendants(p.pid)
}

// Result reaps the process, kills remaining descendants and
// removes the scratch state
func (p *process) Result() runner.Result {
	p.once.Do(func() {
		<-p.done
		p.result = p.reap()
		p.cleanUp()
	})
	return p.result
}

func (p *process) reap() runner.Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	// descendants still alive are killed before the leader is reaped so
	// the group id cannot be reused
	p.killAll()

	var (
		wstatus syscall.WaitStatus
		rusage  syscall.Rusage
		err     error
	)
	for {
		_, err = syscall.Wait4(p.pid, &wstatus, 0, &rusage)
		if err != syscall.EINTR {
			break
		}
	}
	p.reaped = true
	if p.waitErr != nil {
		err = p.waitErr
	}
	if err != nil {
		return runner.Result{
			Status: runner.StatusRunnerError,
			Error:  err.Error(),
		}
	}

	rt := runner.Result{
		Status:      runner.StatusNormal,
		Time:        time.Duration(rusage.Utime.Nano() + rusage.Stime.Nano()),
		Memory:      runner.Size(rusage.Maxrss) << 10, // KiB on linux
		RunningTime: p.finish.Sub(p.start),
	}

	switch {
	case wstatus.Exited():
		if status := wstatus.ExitStatus(); status != 0 {
			rt.Status = runner.StatusNonzeroExitStatus
			rt.ExitStatus = status
		}
	case wstatus.Signaled():
		rt.Status = runner.StatusSignalled
		rt.ExitStatus = int(wstatus.Signal())
	}
	return rt
}

// killAll kills the leader (which takes its pid namespace down with it),
// the process group and every process still tracked
func (p *process) killAll() {
	syscall.Kill(-p.pid, syscall.SIGKILL)
	syscall.Kill(p.pid, syscall.SIGKILL)
	for _, pid := range p.pids() {
		syscall.Kill(pid, syscall.SIGKILL)
	}
}

// destroyCgroup removes the execution cgroup, killed processes may take a
// moment to leave it
func destroyCgroup(cg cgroup.Cgroup) error {
	for range 50 {
		pids, err := cg.Processes()
		if err != nil || len(pids) == 0 {
			break
		}
		for _, pid := range pids {
			syscall.Kill(pid, syscall.SIGKILL)
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cg.Destroy()
}

// descendants walks /proc/<pid>/task/<tid>/children from pid. Inside a pid
// namespace orphans are reparented to the leader so the walk covers the
// whole namespace.
func descendants(pid int) []int {
	pids := []int{pid}
	for i := 0; i < len(pids) && len(pids) < maxTracked; i++ {
		base := "/proc/" + strconv.Itoa(pids[i]) + "/task"
		tasks, err := os.ReadDir(base)
		if err != nil {
			continue
		}
		for _, t := range tasks {
			b, err := os.ReadFile(base + "/" + t.Name() + "/children")
			if err != nil {
				continue
			}
			for _, f := range strings.Fields(string(b)) {
				if c, err := strconv.Atoi(f); err == nil {
					pids = append(pids, c)
				}
			}
		}
	}
	return pids
}
