package types

import (
	"fmt"
)

// JudgeStatus is the overall status of a judge run
type JudgeStatus int

// Judge statuses, ordered by severity
const (
	JudgeAccepted JudgeStatus = iota
	JudgeUnaccepted
	JudgeCompileError
	JudgeUnknownError
)

var judgeStatusToString = []string{
	"ACCEPTED",
	"UNACCEPTED",
	"COMPILE_ERROR",
	"UNKNOWN_ERROR",
}

var stringToJudgeStatus = make(map[string]JudgeStatus)

func (s JudgeStatus) String() string {
	si := int(s)
	if si < 0 || si >= len(judgeStatusToString) {
		return "Invalid"
	}
	return judgeStatusToString[si]
}

// StringToJudgeStatus converts the external string to JudgeStatus
func StringToJudgeStatus(s string) (JudgeStatus, error) {
	v, ok := stringToJudgeStatus[s]
	if !ok {
		return 0, fmt.Errorf("invalid judge status: %s", s)
	}
	return v, nil
}

// Degrade returns the more severe of the two statuses. A degraded status
// never goes back to accepted.
func (s JudgeStatus) Degrade(to JudgeStatus) JudgeStatus {
	return max(s, to)
}

// MarshalText encodes the status as its external string
func (s JudgeStatus) MarshalText() ([]byte, error) {
	if int(s) < 0 || int(s) >= len(judgeStatusToString) {
		return nil, fmt.Errorf("invalid judge status: %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes the external string
func (s *JudgeStatus) UnmarshalText(b []byte) error {
	v, err := StringToJudgeStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// CaseStatus is the status of a single test case
type CaseStatus int

// Case statuses
const (
	CaseAccepted CaseStatus = iota
	CaseWrongAnswer
	CasePresentationError
	CaseTimeLimitExceeded
	CaseMemoryLimitExceeded
	CaseRuntimeError
	CaseCompileTimeLimitExceeded
	CaseCompileMemoryLimitExceeded
	CaseCompileError
	CaseUnknownError
)

var caseStatusToString = []string{
	"ACCEPTED",
	"WRONG_ANSWER",
	"PRESENTATION_ERROR",
	"TIME_LIMIT_EXCEEDED",
	"MEMORY_LIMIT_EXCEEDED",
	"RUNTIME_ERROR",
	"COMPILE_TIME_LIMIT_EXCEEDED",
	"COMPILE_MEMORY_LIMIT_EXCEEDED",
	"COMPILE_ERROR",
	"UNKNOWN_ERROR",
}

var stringToCaseStatus = make(map[string]CaseStatus)

func (s CaseStatus) String() string {
	si := int(s)
	if si < 0 || si >= len(caseStatusToString) {
		return "Invalid"
	}
	return caseStatusToString[si]
}

// StringToCaseStatus converts the external string to CaseStatus
func StringToCaseStatus(s string) (CaseStatus, error) {
	v, ok := stringToCaseStatus[s]
	if !ok {
		return 0, fmt.Errorf("invalid case status: %s", s)
	}
	return v, nil
}

// IsCompileFailure reports whether the status is synthesized from a
// failed compilation
func (s CaseStatus) IsCompileFailure() bool {
	switch s {
	case CaseCompileTimeLimitExceeded, CaseCompileMemoryLimitExceeded, CaseCompileError:
		return true
	}
	return false
}

// MarshalText encodes the status as its external string
func (s CaseStatus) MarshalText() ([]byte, error) {
	if int(s) < 0 || int(s) >= len(caseStatusToString) {
		return nil, fmt.Errorf("invalid case status: %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes the external string
func (s *CaseStatus) UnmarshalText(b []byte) error {
	v, err := StringToCaseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func init() {
	for i, v := range judgeStatusToString {
		stringToJudgeStatus[v] = JudgeStatus(i)
	}
	for i, v := range caseStatusToString {
		stringToCaseStatus[v] = CaseStatus(i)
	}
}
