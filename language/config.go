package language

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Default limits, time in ms and space in KiB
const (
	DefaultCompileTime    = 10000
	DefaultCompileSpace   = 262144
	DefaultCompileProcess = 64

	DefaultCheckerTime    = 1000
	DefaultCheckerSpace   = 1000000
	DefaultCheckerProcess = 1

	DefaultRunProcess = 1
)

// Template defines the command templates for a language. Templates may
// reference {source} and {executable}.
type Template struct {
	Compile string `yaml:"compile"`
	Run     string `yaml:"run"`
}

// Limits defines resource limits of a stage, time in ms and space in KiB
type Limits struct {
	Time    int64  `yaml:"time"`
	Space   int64  `yaml:"space"`
	Process uint64 `yaml:"process"`
}

// Config is the judger configuration file
type Config struct {
	Language map[string]Template `yaml:"language"`

	Compile Limits `yaml:"compile"`
	Checker Limits `yaml:"checker"`
	Run     Limits `yaml:"run"`

	// UnknownVerdict is either "unaccepted" or "lenient"
	UnknownVerdict string `yaml:"unknownVerdict"`
}

// LoadConfig reads the judger configuration file and fills the defaults
func LoadConfig(p string) (*Config, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read judger config: %w", err)
	}
	return ParseConfig(b)
}

// ParseConfig parses the judger configuration and fills the defaults
func ParseConfig(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse judger config: %w", err)
	}
	c.Compile = c.Compile.withDefault(Limits{
		Time:    DefaultCompileTime,
		Space:   DefaultCompileSpace,
		Process: DefaultCompileProcess,
	})
	c.Checker = c.Checker.withDefault(Limits{
		Time:    DefaultCheckerTime,
		Space:   DefaultCheckerSpace,
		Process: DefaultCheckerProcess,
	})
	c.Run = c.Run.withDefault(Limits{Process: DefaultRunProcess})
	return &c, nil
}

func (l Limits) withDefault(d Limits) Limits {
	if l.Time <= 0 {
		l.Time = d.Time
	}
	if l.Space <= 0 {
		l.Space = d.Space
	}
	if l.Process == 0 {
		l.Process = d.Process
	}
	return l
}
