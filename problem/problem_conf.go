package problem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goccy/go-yaml"
)

// ConfigFileName is the problem configuration inside the problem directory
const ConfigFileName = "config.yml"

// ErrInvalidConfig is returned for malformed problem configurations
var ErrInvalidConfig = errors.New("invalid problem config")

// File is the problem config.yml
type File struct {
	Name      string     `yaml:"file"`
	Mode      string     `yaml:"mode"`
	Type      string     `yaml:"type"`
	CaseCount int        `yaml:"case_count"`
	Cases     []CaseFile `yaml:"case"`
}

// CaseFile defines limits and weight of a case, time in ms and space in KiB
type CaseFile struct {
	Time  int64 `yaml:"time"`
	Space int64 `yaml:"space"`
	Score int64 `yaml:"score"`
}

// Config defines a problem judgement configuration
type Config struct {
	Dir   string
	Mode  string
	Type  string // checker strategy
	Cases []Case
}

// Case defines single judge case, immutable once built
type Case struct {
	Index       int    // 0 based
	Input       string // <dir>/<stem><i>.in
	Answer      string // <dir>/<stem><i>.out
	TimeLimit   int64  // ms
	MemoryLimit int64  // KiB
	Score       int64
}

// Builder builds problem specs from problem directory
type Builder interface {
	Build(dir string) (Config, error)
}

// DirBuilder reads config.yml inside the problem directory
type DirBuilder struct{}

var _ Builder = DirBuilder{}

// Build reads <dir>/config.yml
func (DirBuilder) Build(dir string) (Config, error) {
	b, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	if err != nil {
		return Config{}, fmt.Errorf("read problem config: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return f.Config(dir)
}

// Config validates the file and expands the cases
func (f *File) Config(dir string) (Config, error) {
	if f.CaseCount < 0 {
		return Config{}, fmt.Errorf("%w: negative case_count %d", ErrInvalidConfig, f.CaseCount)
	}
	if len(f.Cases) != f.CaseCount {
		return Config{}, fmt.Errorf("%w: case_count is %d but %d cases listed", ErrInvalidConfig, f.CaseCount, len(f.Cases))
	}
	if f.CaseCount > 0 && f.Name == "" {
		return Config{}, fmt.Errorf("%w: missing file name", ErrInvalidConfig)
	}
	cases := make([]Case, 0, f.CaseCount)
	for i, c := range f.Cases {
		if c.Time <= 0 || c.Space <= 0 || c.Score < 0 {
			return Config{}, fmt.Errorf("%w: case %d has invalid limits %+v", ErrInvalidConfig, i+1, c)
		}
		stem := filepath.Join(dir, f.Name+strconv.Itoa(i+1))
		cases = append(cases, Case{
			Index:       i,
			Input:       stem + ".in",
			Answer:      stem + ".out",
			TimeLimit:   c.Time,
			MemoryLimit: c.Space,
			Score:       c.Score,
		})
	}
	return Config{
		Dir:   dir,
		Mode:  f.Mode,
		Type:  f.Type,
		Cases: cases,
	}, nil
}
