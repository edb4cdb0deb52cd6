package env

import (
	"os"
	"syscall"

	"github.com/criyle/go-sandbox/pkg/forkexec"
	"github.com/hydrogen-oj/judger/envexec"
	"golang.org/x/sys/unix"
)

const (
	containerName = "hoj_judger"
	containerCred = 1000
)

// NewEnvironment creates the linux sandbox environment
func NewEnvironment(c Config) (envexec.Environment, map[string]any, error) {
	var mounts []Mount
	mc, err := readMountConfig(c.MountConf)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, nil, err
		}
		c.Info("Mount.yaml(", c.MountConf, ") does not exists, use the default mount for confined processes")
		mounts = getDefaultMount()
	} else {
		mounts, err = parseMountConfig(mc)
		if err != nil {
			return nil, nil, err
		}
	}

	seccomp, err := loadSeccompFilter(c.SeccompConf)
	if err != nil {
		return nil, nil, err
	}
	if seccomp != nil {
		c.Info("Load seccomp filter: ", c.SeccompConf)
	}

	unshareFlags := uintptr(forkexec.UnshareFlags)
	if c.NetShare {
		unshareFlags ^= syscall.CLONE_NEWNET
	}
	major, minor := kernelVersion()
	if major < 4 || (major == 4 && minor < 6) {
		unshareFlags ^= unix.CLONE_NEWCGROUP
		c.Info("Kernel version (", major, ".", minor, ") < 4.6, don't unshare cgroup")
	}

	hostName := containerName
	domainName := containerName
	cUID := containerCred
	cGID := containerCred
	if mc != nil {
		if mc.HostName != "" {
			hostName = mc.HostName
		}
		if mc.DomainName != "" {
			domainName = mc.DomainName
		}
		if mc.UID > 0 {
			cUID = mc.UID
		}
		if mc.GID > 0 {
			cGID = mc.GID
		}
	}

	pidFlags, idMapped := pidNamespaceFlags(c)
	cg, ct := setupCgroup(c)
	cgroupType, controllers := cgroupInfo(cg, ct)
	c.Info("Created executions cgroup: type=", cgroupType, ", controllers=", controllers)

	tmpRoot := c.TmpRoot
	if tmpRoot == "" {
		tmpRoot = os.TempDir()
	}
	c.Info("Creating sandbox environment: hostName=", hostName, ", domainName=", domainName, ", tmpRoot=", tmpRoot)

	return &environment{
			mounts:       mounts,
			seccomp:      seccomp,
			unshareFlags: unshareFlags,
			hostName:     hostName,
			domainName:   domainName,
			uid:          cUID,
			gid:          cGID,
			tmpRoot:      tmpRoot,
			procRLimit:   c.ProcRLimit,
			pidFlags:     pidFlags,
			idMapped:     idMapped,
			cgroup:       cg,
		}, map[string]any{
			"mount":      mounts,
			"seccomp":    seccomp != nil,
			"hostName":   hostName,
			"domainName": domainName,
			"uid":        cUID,
			"gid":        cGID,
			"tmpRoot":    tmpRoot,
			"procRLimit": c.ProcRLimit,
			"pidNS":      pidFlags != 0,
			"cgroupType": cgroupType,
			"cgroup":     controllers,
		}, nil
}

// pidNamespaceFlags decides the clone flags of unconfined processes. A new
// pid namespace makes the process its init, so all descendants die with it.
// Without root a user namespace mapping the current ids to themselves is
// needed as well. The flags are tried once with /bin/true.
func pidNamespaceFlags(c Config) (uintptr, bool) {
	if c.NoPidNamespace {
		return 0, false
	}
	flags := uintptr(syscall.CLONE_NEWPID)
	idMapped := os.Geteuid() != 0
	if idMapped {
		flags |= syscall.CLONE_NEWUSER
	}
	r := &forkexec.Runner{
		Args:       []string{"/bin/true"},
		Env:        []string{defaultPath},
		CloneFlags: flags,
	}
	if idMapped {
		r.UIDMappings = []syscall.SysProcIDMap{{ContainerID: os.Getuid(), HostID: os.Getuid(), Size: 1}}
		r.GIDMappings = []syscall.SysProcIDMap{{ContainerID: os.Getgid(), HostID: os.Getgid(), Size: 1}}
	}
	pid, err := r.Start()
	if err != nil {
		c.Warn("Failed to create pid namespace, descendants escaping the process group are not tracked: ", err)
		return 0, false
	}
	var ws syscall.WaitStatus
	for {
		if _, err := syscall.Wait4(pid, &ws, 0, nil); err != syscall.EINTR {
			break
		}
	}
	return flags, idMapped
}

func kernelVersion() (major int, minor int) {
	var uname syscall.Utsname
	if err := syscall.Uname(&uname); err != nil {
		return
	}

	rl := uname.Release
	var values [2]int
	vi := 0
	value := 0
	for _, c := range rl {
		if '0' <= c && c <= '9' {
			value = (value * 10) + int(c-'0')
		} else {
			// Note that we're assuming N.N.N here.  If we see anything else we are likely to
			// mis-parse it.
			values[vi] = value
			vi++
			if vi >= len(values) {
				break
			}
			value = 0
		}
	}
	switch vi {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	case 2:
		return values[0], values[1]
	}
	return
}
