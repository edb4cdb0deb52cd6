//go:build !linux

package env

import (
	"errors"
	"runtime"

	"github.com/hydrogen-oj/judger/envexec"
)

// NewEnvironment is only supported on linux
func NewEnvironment(c Config) (envexec.Environment, map[string]any, error) {
	return nil, nil, errors.New("environment is not supported on this platform: " + runtime.GOOS)
}
