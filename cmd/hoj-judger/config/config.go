package config

import (
	"errors"
	"os"
	"time"

	"github.com/koding/multiconfig"
)

// Config defines the judger command line configuration
type Config struct {
	// submission
	Source   string `flagUsage:"set source file"`
	Language string `flagUsage:"set judger language"`
	Problem  string `flagUsage:"set problem directory"`
	Output   string `flagUsage:"set output directory" default:"."`
	Checker  string `flagUsage:"set checker path" default:"./hoj-checker"`
	Config   string `flagUsage:"specifies judger configuration file" default:"./hoj-judger-config.yml"`

	// sandbox
	MountConf      string        `flagUsage:"specifies mount configuration file for confined programs" default:"mount.yaml"`
	SeccompConf    string        `flagUsage:"specifies seccomp filter (needs seccomp build tag)"`
	Confine        bool          `flagUsage:"run compiler and program inside a private root"`
	NetShare       bool          `flagUsage:"share net namespace with host when confined"`
	ProcRLimit     bool          `flagUsage:"also enforce process limit with RLIMIT_NPROC (dedicated user only)"`
	TmpRoot        string        `flagUsage:"parent directory of the confined roots (default os temp dir)"`
	CgroupPrefix   string        `flagUsage:"control cgroup prefix, empty disables cgroup" default:"hoj-judger"`
	NoPidNamespace bool          `flagUsage:"do not start unconfined programs in a new pid namespace"`
	SampleInterval time.Duration `flagUsage:"specifies memory and process sampling interval" default:"10ms"`
	StrictMemory   bool          `flagUsage:"also limit memory with rlimit"`
	Parallelism    int           `flagUsage:"control the # of test cases running concurrently" default:"1"`

	// reporting
	NatsURL     string `flagUsage:"publish progress to NATS server"`
	NatsSubject string `flagUsage:"specifies NATS subject for progress" default:"hoj.judge"`
	MetricsFile string `flagUsage:"write prometheus metrics in text format to file"`
	NoColor     bool   `flagUsage:"disable colored console output"`

	// logger config
	Release bool `flagUsage:"release level of logs"`
	Silent  bool `flagUsage:"do not print logs"`
	Debug   bool `flagUsage:"enable debug logs"`

	// show version and exit
	Version bool `flagUsage:"show version and exit"`
}

// Load loads config from flag & environment variables
func (c *Config) Load() error {
	cl := multiconfig.MultiLoader(
		&multiconfig.TagLoader{},
		&multiconfig.EnvironmentLoader{
			Prefix:    "HOJ",
			CamelCase: true,
		},
		&multiconfig.FlagLoader{
			CamelCase: true,
			EnvPrefix: "HOJ",
		},
	)
	if os.Getpid() == 1 {
		c.Release = true
	}
	return cl.Load(c)
}

// Validate checks the required parameters
func (c *Config) Validate() error {
	var errs []error
	if c.Source == "" {
		errs = append(errs, errors.New("source file is required"))
	}
	if c.Language == "" {
		errs = append(errs, errors.New("language is required"))
	}
	if c.Problem == "" {
		errs = append(errs, errors.New("problem directory is required"))
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 1
	}
	return errors.Join(errs...)
}
