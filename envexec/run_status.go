package envexec

import (
	"fmt"
)

// Cause defines why the process terminated
type Cause int

// Defines termination causes
const (
	// exit normally (with any exit code)
	CauseNormal Cause = iota
	// terminated by signal not sent by the executor
	CauseSignaled

	// killed by the executor
	CauseTimeLimitExceeded    // TLE
	CauseMemoryLimitExceeded  // MLE
	CauseProcessLimitExceeded // PLE

	// never started
	CauseSpawnFailed
)

var causeToString = []string{
	"Normal",
	"Signaled",
	"Time Limit Exceeded",
	"Memory Limit Exceeded",
	"Process Limit Exceeded",
	"Spawn Failed",
}

// stringToCause map string to corresponding Cause
var stringToCause = make(map[string]Cause)

func (c Cause) String() string {
	ci := int(c)
	if ci < 0 || ci >= len(causeToString) {
		return "Invalid"
	}
	return causeToString[ci]
}

// StringToCause convert string to Cause
func StringToCause(s string) (Cause, error) {
	v, ok := stringToCause[s]
	if !ok {
		return 0, fmt.Errorf("invalid string converting: %s", s)
	}
	return v, nil
}

// Killed reports whether the executor killed the process for a limit
func (c Cause) Killed() bool {
	return c == CauseTimeLimitExceeded || c == CauseMemoryLimitExceeded || c == CauseProcessLimitExceeded
}

func init() {
	for i, v := range causeToString {
		stringToCause[v] = Cause(i)
	}
}
