package env

// Logger is the logging interface used while building the environment
type Logger interface {
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
}

// Config defines parameters to create the sandbox environment
type Config struct {
	MountConf   string // mount.yaml used for confined processes
	SeccompConf string // seccomp.yaml (needs the seccomp build tag)
	NetShare    bool   // share net namespace with host when confined
	TmpRoot     string // parent directory of per-execution scratch roots
	ProcRLimit  bool   // also enforce process limit with RLIMIT_NPROC (per uid)

	// CgroupPrefix names the cgroup (or systemd scope) created for the
	// executions, empty disables cgroup
	CgroupPrefix string
	// NoPidNamespace starts unconfined processes without a new pid namespace
	NoPidNamespace bool
	Logger
}
