package judger

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/hydrogen-oj/judger/envexec"
	"github.com/hydrogen-oj/judger/types"
	"go.uber.org/zap"
)

const maxCompileInfo = 64 << 10 // 64k

// compileOutcome is the classified compile result
type compileOutcome struct {
	status types.CaseStatus // mirrored into every case on failure
	judge  types.JudgeStatus
	info   string
}

func (o compileOutcome) ok() bool {
	return o.status == types.CaseAccepted
}

// compile runs the compiler with stdout and stderr to compile.log
func (p *pipeline) compile(ctx context.Context, args []string) (compileOutcome, error) {
	logPath := filepath.Join(p.OutputDir, CompileLogName)
	rt, err := p.Executor.Execute(ctx, &envexec.Cmd{
		Args:              args,
		Dir:               p.OutputDir,
		Stdout:            logPath,
		Stderr:            logPath,
		TimeLimit:         envexec.MS(p.Compile.Time),
		MemoryLimit:       envexec.KiB(p.Compile.Space),
		ProcLimit:         p.Compile.Process,
		StrictMemoryLimit: p.StrictMemory,
		Confine:           p.confine(true),
	})
	if err != nil {
		if !isSandboxError(err) {
			return compileOutcome{}, err
		}
		p.logger.Error("compiler failed to run", zap.Error(err))
		return compileOutcome{
			status: types.CaseUnknownError,
			judge:  types.JudgeUnknownError,
		}, nil
	}

	o := classifyCompile(rt, p.Compile.Time, p.Compile.Space)
	if o.status == types.CaseCompileError {
		info, err := readCompileLog(logPath)
		if err != nil {
			p.logger.Error("compile log unreadable", zap.Error(err))
			return compileOutcome{
				status: types.CaseUnknownError,
				judge:  types.JudgeUnknownError,
			}, nil
		}
		o.info = info
	}
	p.logger.Info("compiled",
		zap.Stringer("status", o.status),
		zap.Stringer("cause", rt.Cause),
		zap.Int("exitStatus", rt.ExitStatus),
		zap.Duration("time", rt.Time),
		zap.Int64("memoryKiB", rt.MemoryKiB()))
	return o, nil
}

// classifyCompile classifies in order: time, memory, exit status
func classifyCompile(rt envexec.Result, timeMS, spaceKiB int64) compileOutcome {
	switch {
	case rt.Cause == envexec.CauseTimeLimitExceeded || rt.TimeMS() > timeMS:
		return compileOutcome{status: types.CaseCompileTimeLimitExceeded, judge: types.JudgeCompileError}
	case rt.Cause == envexec.CauseMemoryLimitExceeded || rt.MemoryKiB() > spaceKiB:
		return compileOutcome{status: types.CaseCompileMemoryLimitExceeded, judge: types.JudgeCompileError}
	case rt.Cause != envexec.CauseNormal || rt.ExitStatus != 0:
		return compileOutcome{status: types.CaseCompileError, judge: types.JudgeCompileError}
	}
	return compileOutcome{status: types.CaseAccepted, judge: types.JudgeAccepted}
}

func readCompileLog(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()

	b, err := io.ReadAll(io.LimitReader(f, maxCompileInfo))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
