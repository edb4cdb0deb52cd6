package types

// CaseResult contains the result of a single test case
type CaseResult struct {
	Index  int        `yaml:"-" json:"index"`
	Time   int64      `yaml:"time" json:"time"`   // ms
	Space  int64      `yaml:"space" json:"space"` // KiB
	Score  int64      `yaml:"score" json:"score"`
	Status CaseStatus `yaml:"status" json:"status"`
}

// JudgeResult contains the final result of a judge run
type JudgeResult struct {
	Status    JudgeStatus  `yaml:"status" json:"status"`
	Score     int64        `yaml:"score" json:"score"`
	Time      int64        `yaml:"time" json:"time"`   // ms, sum over cases
	Space     int64        `yaml:"space" json:"space"` // KiB, max over cases
	CaseCount int          `yaml:"case_count" json:"caseCount"`
	Cases     []CaseResult `yaml:"case" json:"case"`

	// Info contains the compiler output on compile error
	Info string `yaml:"info,omitempty" json:"info,omitempty"`
}

// ProgressStatus defines progress status
type ProgressStatus int

// Whether progress success / fail
const (
	ProgressSucceeded ProgressStatus = iota + 1
	ProgressFailed
)

func (s ProgressStatus) String() string {
	switch s {
	case ProgressSucceeded:
		return "succeeded"
	case ProgressFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the progress status as string
func (s ProgressStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ProgressCompiled compiled progress
type ProgressCompiled struct {
	Status  ProgressStatus `json:"status"`
	Message string         `json:"message,omitempty"` // compiler output if failed
}

// ProgressProgressed contains progress of current task
type ProgressProgressed struct {
	// defines which test case finished (0 based)
	TestCaseIndex int `json:"testCaseIndex"`

	// test case result
	CaseResult CaseResult `json:"result"`
}
