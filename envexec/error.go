package envexec

import (
	"errors"
	"fmt"
)

// SandboxErrorKind distinguishes sandbox failures
type SandboxErrorKind int

// Sandbox failure kinds
const (
	SpawnFailed SandboxErrorKind = iota + 1
	WaitFailed
)

func (k SandboxErrorKind) String() string {
	switch k {
	case SpawnFailed:
		return "spawn failed"
	case WaitFailed:
		return "wait failed"
	default:
		return "unknown"
	}
}

// SandboxError is returned when the child could not be started or waited.
// It is never returned for a child that ran and exited with non-zero status.
type SandboxError struct {
	Kind SandboxErrorKind
	Err  error
}

func (e *SandboxError) Error() string {
	return fmt.Sprintf("sandbox: %v: %v", e.Kind, e.Err)
}

func (e *SandboxError) Unwrap() error {
	return e.Err
}

// IsSpawnFailed reports whether err is caused by a failed spawn
func IsSpawnFailed(err error) bool {
	var se *SandboxError
	return errors.As(err, &se) && se.Kind == SpawnFailed
}
