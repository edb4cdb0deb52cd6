package judger

import (
	"errors"
	"fmt"
)

// ErrSpecialJudgeUnavailable is returned when a problem selects the special
// judge checker, which is not available yet
var ErrSpecialJudgeUnavailable = errors.New("special judge is not available")

// ConfigError is a fatal configuration error, it is returned before any
// program is executed
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is caused by configuration
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func configError(field string, err error) error {
	return &ConfigError{Field: field, Err: err}
}
