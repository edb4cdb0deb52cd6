package natsclient

import (
	"github.com/hydrogen-oj/judger/types"
)

type progressType int

const (
	progressCompiled progressType = iota + 1
	progressProgress
	progressFinished
)

func (t progressType) String() string {
	switch t {
	case progressCompiled:
		return "compiled"
	case progressProgress:
		return "progress"
	case progressFinished:
		return "finished"
	default:
		return "unknown"
	}
}

func (t progressType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

type message struct {
	RunID   string                    `json:"runId"`
	Type    progressType              `json:"type"`
	Compile *types.ProgressCompiled   `json:"compile,omitempty"`
	Case    *types.ProgressProgressed `json:"case,omitempty"`
	Result  *types.JudgeResult        `json:"result,omitempty"`
}
