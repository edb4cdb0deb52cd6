package judger

import (
	"context"
	"fmt"

	"github.com/hydrogen-oj/judger/envexec"
	"github.com/hydrogen-oj/judger/language"
	"github.com/hydrogen-oj/judger/problem"
	"github.com/hydrogen-oj/judger/types"
)

// Verdict is the answer of a checker
type Verdict int

// Checker verdicts
const (
	VerdictAccepted Verdict = iota
	VerdictWrongAnswer
	VerdictPresentationError
	VerdictUnknown
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccepted:
		return "Accepted"
	case VerdictWrongAnswer:
		return "Wrong Answer"
	case VerdictPresentationError:
		return "Presentation Error"
	default:
		return "Unknown"
	}
}

// CaseStatus maps the verdict to the case status
func (v Verdict) CaseStatus() types.CaseStatus {
	switch v {
	case VerdictAccepted:
		return types.CaseAccepted
	case VerdictWrongAnswer:
		return types.CaseWrongAnswer
	case VerdictPresentationError:
		return types.CasePresentationError
	default:
		return types.CaseUnknownError
	}
}

// VerdictFromExitStatus maps the checker exit code, 0 accepted, 1 wrong
// answer, 2 presentation error and anything else unknown
func VerdictFromExitStatus(status int) Verdict {
	switch status {
	case 0:
		return VerdictAccepted
	case 1:
		return VerdictWrongAnswer
	case 2:
		return VerdictPresentationError
	default:
		return VerdictUnknown
	}
}

// Problem types selecting the checker
const (
	TypeDefault      = "default"
	TypeSpecialJudge = "spj"
)

// Checker decides the verdict of a produced output
type Checker interface {
	Check(ctx context.Context, c problem.Case, output string) (Verdict, error)
}

// NewChecker creates the checker for the problem type
func NewChecker(typ string, e envexec.Executor, path string, l language.Limits) (Checker, error) {
	switch typ {
	case TypeDefault:
		return &DefaultDiff{Executor: e, Path: path, Limits: l}, nil
	case TypeSpecialJudge:
		return nil, configError("problem type", ErrSpecialJudgeUnavailable)
	default:
		return nil, configError("problem type", fmt.Errorf("unknown problem type %q", typ))
	}
}

// DefaultDiff runs the external checker as
// `<path> <input> <output> <answer>` and maps its exit code
type DefaultDiff struct {
	Executor envexec.Executor
	Path     string
	Limits   language.Limits
}

var _ Checker = &DefaultDiff{}

// Check runs the checker. A checker that could not be started returns the
// sandbox error with VerdictUnknown.
func (d *DefaultDiff) Check(ctx context.Context, c problem.Case, output string) (Verdict, error) {
	rt, err := d.Executor.Execute(ctx, &envexec.Cmd{
		Args:        []string{d.Path, c.Input, output, c.Answer},
		TimeLimit:   envexec.MS(d.Limits.Time),
		MemoryLimit: envexec.KiB(d.Limits.Space),
		ProcLimit:   d.Limits.Process,
	})
	if err != nil {
		return VerdictUnknown, err
	}
	if rt.Cause != envexec.CauseNormal {
		return VerdictUnknown, nil
	}
	return VerdictFromExitStatus(rt.ExitStatus), nil
}

// SpecialJudge runs a problem provided checker program, it is reserved
// and always fails
type SpecialJudge struct {
	Program string
}

var _ Checker = &SpecialJudge{}

// Check always returns ErrSpecialJudgeUnavailable
func (s *SpecialJudge) Check(context.Context, problem.Case, string) (Verdict, error) {
	return VerdictUnknown, ErrSpecialJudgeUnavailable
}
