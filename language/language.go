package language

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// Type defines whether to compile or run
type Type int

// Compile / Run
const (
	TypeCompile Type = iota + 1
	TypeRun
)

func (t Type) String() string {
	switch t {
	case TypeCompile:
		return "compile"
	case TypeRun:
		return "run"
	default:
		return "unknown"
	}
}

var (
	// ErrUnknownLanguage is returned when the language is not configured
	ErrUnknownLanguage = errors.New("unknown language")

	// ErrNoTemplate is returned when the language does not define the
	// command of the requested type
	ErrNoTemplate = errors.New("no command template")
)

// Vars are the values substituted into the templates
type Vars struct {
	Source     string
	Executable string
}

// Language defines the way to run program
type Language interface {
	// Get returns the argv of specific language and type (compile / run)
	Get(name string, t Type, v Vars) ([]string, error)
}

var _ Language = &Config{}

// Get formats the template and splits it into argv. Substitution happens
// after splitting, so paths containing spaces stay a single argument.
func (c *Config) Get(name string, t Type, v Vars) ([]string, error) {
	tpl, ok := c.Language[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLanguage, name)
	}
	var s string
	switch t {
	case TypeCompile:
		s = tpl.Compile
	case TypeRun:
		s = tpl.Run
	}
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: %s %s", ErrNoTemplate, name, t)
	}
	args, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("split %s command of %s: %w", t, name, err)
	}
	return Format(args, v), nil
}

// Format replaces {source} and {executable} in every argument
func Format(args []string, v Vars) []string {
	r := strings.NewReplacer("{source}", v.Source, "{executable}", v.Executable)
	ret := make([]string, 0, len(args))
	for _, a := range args {
		ret = append(ret, r.Replace(a))
	}
	return ret
}
