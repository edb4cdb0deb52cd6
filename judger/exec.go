package judger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hydrogen-oj/judger/envexec"
	"github.com/hydrogen-oj/judger/problem"
	"github.com/hydrogen-oj/judger/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// caseOutcome is the classified case result and the judge status it
// degrades to
type caseOutcome struct {
	result types.CaseResult
	judge  types.JudgeStatus
}

// runCases runs every case and returns the outcomes ordered by index
func (p *pipeline) runCases(ctx context.Context) ([]caseOutcome, error) {
	outcomes := make([]caseOutcome, len(p.prob.Cases))
	if p.Parallelism <= 1 {
		for i, c := range p.prob.Cases {
			o, err := p.runCase(ctx, c)
			if err != nil {
				return nil, err
			}
			outcomes[i] = o
			p.progressed(o.result)
		}
		return outcomes, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Parallelism)
	for i, c := range p.prob.Cases {
		g.Go(func() error {
			o, err := p.runCase(gctx, c)
			if err != nil {
				return err
			}
			outcomes[i] = o
			p.progressed(o.result)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// OutputPath returns the produced output path of case index (0 based)
func OutputPath(dir string, index int) string {
	return filepath.Join(dir, "output"+strconv.Itoa(index+1)+".out")
}

// runCase runs the executable on a single case, then the checker when
// the run was clean
func (p *pipeline) runCase(ctx context.Context, c problem.Case) (caseOutcome, error) {
	for _, f := range []string{c.Input, c.Answer} {
		if _, err := os.Stat(f); err != nil {
			return caseOutcome{}, fmt.Errorf("case %d: %w", c.Index+1, err)
		}
	}

	output := OutputPath(p.OutputDir, c.Index)
	rt, err := p.Executor.Execute(ctx, &envexec.Cmd{
		Args:              p.runArgs,
		Dir:               p.OutputDir,
		Stdin:             c.Input,
		Stdout:            output,
		TimeLimit:         envexec.MS(c.TimeLimit),
		MemoryLimit:       envexec.KiB(c.MemoryLimit),
		ProcLimit:         p.Run.Process,
		StrictMemoryLimit: p.StrictMemory,
		Confine:           p.confine(false),
	})
	if err != nil {
		if !isSandboxError(err) {
			return caseOutcome{}, fmt.Errorf("case %d: %w", c.Index+1, err)
		}
		p.logger.Error("program failed to run", zap.Int("case", c.Index+1), zap.Error(err))
		return caseOutcome{
			result: types.CaseResult{Index: c.Index, Status: types.CaseUnknownError},
			judge:  types.JudgeUnknownError,
		}, nil
	}

	r := types.CaseResult{
		Index: c.Index,
		Time:  rt.TimeMS(),
		Space: rt.MemoryKiB(),
	}
	o := caseOutcome{result: r, judge: types.JudgeAccepted}
	if status, clean := classifyRun(rt, c.TimeLimit, c.MemoryLimit); !clean {
		o.result.Status = status
		o.judge = types.JudgeUnaccepted
		p.logCase(c, rt, o)
		return o, nil
	}

	v, err := p.checker.Check(ctx, c, output)
	switch {
	case err == nil:
	case isSandboxError(err):
		p.logger.Error("checker failed to run", zap.Int("case", c.Index+1), zap.Error(err))
		o.result.Status = types.CaseUnknownError
		o.judge = types.JudgeUnknownError
		p.logCase(c, rt, o)
		return o, nil
	default:
		return caseOutcome{}, fmt.Errorf("case %d: checker: %w", c.Index+1, err)
	}

	o.result.Status = v.CaseStatus()
	switch v {
	case VerdictAccepted:
		o.result.Score = c.Score
	case VerdictUnknown:
		if p.UnknownVerdict == UnknownUnaccepted {
			o.judge = types.JudgeUnaccepted
		}
	default:
		o.judge = types.JudgeUnaccepted
	}
	p.logCase(c, rt, o)
	return o, nil
}

func (p *pipeline) logCase(c problem.Case, rt envexec.Result, o caseOutcome) {
	p.logger.Debug("case finished",
		zap.Int("case", c.Index+1),
		zap.Stringer("status", o.result.Status),
		zap.Stringer("cause", rt.Cause),
		zap.Int("exitStatus", rt.ExitStatus),
		zap.Duration("time", rt.Time),
		zap.Duration("cpuTime", rt.CPUTime),
		zap.Int64("memoryKiB", rt.MemoryKiB()))
}

// classifyRun classifies in order: time, memory, exit status. clean is
// true only when the checker should run.
func classifyRun(rt envexec.Result, timeMS, spaceKiB int64) (status types.CaseStatus, clean bool) {
	switch {
	case rt.Cause == envexec.CauseTimeLimitExceeded || rt.TimeMS() > timeMS:
		return types.CaseTimeLimitExceeded, false
	case rt.Cause == envexec.CauseMemoryLimitExceeded || rt.MemoryKiB() > spaceKiB:
		return types.CaseMemoryLimitExceeded, false
	case rt.Cause != envexec.CauseNormal || rt.ExitStatus != 0:
		return types.CaseRuntimeError, false
	}
	return types.CaseAccepted, true
}
