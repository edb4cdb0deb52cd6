package env

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/criyle/go-sandbox/pkg/cgroup"
	"github.com/criyle/go-sandbox/pkg/forkexec"
	"github.com/criyle/go-sandbox/pkg/rlimit"
	"github.com/hydrogen-oj/judger/envexec"
	"golang.org/x/sys/unix"
)

var _ envexec.Environment = &environment{}

const (
	defaultPath      = "PATH=/usr/local/bin:/usr/bin:/bin"
	memoryLimitExtra = 16 << 20 // 16m
)

// environment starts processes with fork / exec, confined ones
// inside new namespaces with a private root
type environment struct {
	mounts       []Mount
	seccomp      *syscall.SockFprog
	unshareFlags uintptr
	hostName     string
	domainName   string
	uid, gid     int
	tmpRoot      string
	procRLimit   bool

	// unconfined processes are started in a new pid namespace when set
	pidFlags uintptr
	idMapped bool

	// parent of the per-execution cgroups, nil without cgroup support
	cgroup cgroup.Cgroup
}

// Execve starts the process as a session leader, inside its own pid
// namespace and cgroup when available
func (e *environment) Execve(ctx context.Context, param envexec.ExecveParam) (envexec.Process, error) {
	env := param.Env
	if len(env) == 0 {
		env = []string{defaultPath}
	}

	ch := &forkexec.Runner{
		Args:    param.Args,
		Env:     env,
		Files:   param.Files,
		WorkDir: param.Dir,
		RLimits: prepareRLimits(param.Limit, e.procRLimit),
		// the child calls setsid, so its pid is also the process group id
		CloneFlags: e.pidFlags,
	}
	if e.idMapped {
		ch.UIDMappings = []syscall.SysProcIDMap{{ContainerID: os.Getuid(), HostID: os.Getuid(), Size: 1}}
		ch.GIDMappings = []syscall.SysProcIDMap{{ContainerID: os.Getgid(), HostID: os.Getgid(), Size: 1}}
	}

	var cleanUps []func()
	cleanUp := func() {
		for i := len(cleanUps) - 1; i >= 0; i-- {
			cleanUps[i]()
		}
	}

	cg, err := e.newCgroup(param.Limit)
	if err != nil {
		return nil, fmt.Errorf("execve: %w", err)
	}
	if cg != nil {
		cleanUps = append(cleanUps, func() { destroyCgroup(cg) })
		ch.SyncFunc = func(pid int) error {
			return cg.AddProc(pid)
		}
	}

	if param.Confine != nil {
		root, err := os.MkdirTemp(e.tmpRoot, "hoj-root")
		if err != nil {
			cleanUp()
			return nil, fmt.Errorf("execve: failed to create root: %w", err)
		}
		cleanUps = append(cleanUps, func() { os.RemoveAll(root) })

		mounts, err := buildMounts(e.mounts, param.Confine)
		if err != nil {
			cleanUp()
			return nil, fmt.Errorf("execve: %w", err)
		}
		ch.CloneFlags = e.unshareFlags
		ch.Mounts = mounts
		ch.PivotRoot = root
		ch.HostName = e.hostName
		ch.DomainName = e.domainName
		ch.Seccomp = e.seccomp
		ch.NoNewPrivs = true
		ch.DropCaps = true
		if e.unshareFlags&syscall.CLONE_NEWUSER != 0 {
			ch.UIDMappings = []syscall.SysProcIDMap{{ContainerID: e.uid, HostID: os.Getuid(), Size: 1}}
			ch.GIDMappings = []syscall.SysProcIDMap{{ContainerID: e.gid, HostID: os.Getgid(), Size: 1}}
		}
		if ch.WorkDir == "" {
			ch.WorkDir = "/tmp"
		}
	}

	pid, err := ch.Start()
	if err != nil {
		cleanUp()
		return nil, err
	}
	p := newProcess(pid, cg, cleanUp)

	// handle cancel
	go func() {
		select {
		case <-ctx.Done():
			p.Kill()
		case <-p.done:
		}
	}()
	return p, nil
}

// newCgroup creates the cgroup of a single execution. The memory limit is a
// backstop above the sampled limit, the pids limit is one above the process
// limit so the watchdog observes the breach.
func (e *environment) newCgroup(limit envexec.Limit) (cgroup.Cgroup, error) {
	if e.cgroup == nil {
		return nil, nil
	}
	cg, err := e.cgroup.Random("")
	if err != nil {
		return nil, fmt.Errorf("failed to create cgroup: %w", err)
	}
	if limit.Memory > 0 {
		if err := cg.SetMemoryLimit(uint64(limit.Memory) + memoryLimitExtra); err != nil {
			cg.Destroy()
			return nil, fmt.Errorf("failed to set memory limit: %w", err)
		}
	}
	if limit.Proc > 0 {
		if err := cg.SetProcLimit(limit.Proc + 1); err != nil {
			cg.Destroy()
			return nil, fmt.Errorf("failed to set pids limit: %w", err)
		}
	}
	return cg, nil
}

func prepareRLimits(limit envexec.Limit, procRLimit bool) []rlimit.RLimit {
	rLimits := rlimit.RLimits{
		FileSize:    limit.Output.Byte(),
		Stack:       limit.Stack.Byte(),
		DisableCore: true,
	}
	// CPU time is a backstop, the wall clock watchdog decides time limit
	if limit.Time > 0 {
		rLimits.CPU = uint64(limit.Time.Truncate(time.Second)/time.Second) + 1
	}
	if limit.StrictMemory {
		rLimits.Data = limit.Memory.Byte()
	}
	rl := rLimits.PrepareRLimit()
	// RLIMIT_NPROC counts every process of the uid, only usable when
	// the judger runs under a dedicated user
	if procRLimit && limit.Proc > 0 {
		rl = append(rl, rlimit.RLimit{
			Res:  unix.RLIMIT_NPROC,
			Rlim: syscall.Rlimit{Cur: limit.Proc, Max: limit.Proc},
		})
	}
	return rl
}
