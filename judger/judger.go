package judger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/hydrogen-oj/judger/client"
	"github.com/hydrogen-oj/judger/envexec"
	"github.com/hydrogen-oj/judger/language"
	"github.com/hydrogen-oj/judger/problem"
	"github.com/hydrogen-oj/judger/types"
	"go.uber.org/zap"
)

// File names inside the output directory
const (
	CompileLogName = "compile.log"
	ExecutableName = "exe"
)

// UnknownVerdictPolicy decides the judge status when a checker answers
// with an unknown verdict
type UnknownVerdictPolicy int

// Unknown verdict policies
const (
	// UnknownUnaccepted degrades the judge status to unaccepted
	UnknownUnaccepted UnknownVerdictPolicy = iota
	// UnknownLenient leaves the judge status untouched
	UnknownLenient
)

// ParseUnknownVerdictPolicy parses "unaccepted" (or empty) and "lenient"
func ParseUnknownVerdictPolicy(s string) (UnknownVerdictPolicy, error) {
	switch s {
	case "", "unaccepted":
		return UnknownUnaccepted, nil
	case "lenient":
		return UnknownLenient, nil
	default:
		return 0, configError("unknownVerdict", fmt.Errorf("invalid policy %q", s))
	}
}

// Options defines how submissions are judged
type Options struct {
	// OutputDir receives compile.log, the executable and case outputs
	OutputDir string

	// CheckerPath is the external checker for the default problem type
	CheckerPath string

	// Compile, Checker and Run limits, time in ms and space in KiB.
	// Run time and space come from the cases.
	Compile language.Limits
	Checker language.Limits
	Run     language.Limits

	// Confine runs compile and run inside a private root
	Confine bool

	// StrictMemory also limits memory with rlimit
	StrictMemory bool

	// Parallelism is the number of cases to run concurrently
	Parallelism int

	UnknownVerdict UnknownVerdictPolicy
}

// Judger receives task from client and judges them with the executor
type Judger struct {
	client.Client
	problem.Builder
	language.Language

	Executor envexec.Executor
	Logger   *zap.Logger
	Options
}

// Judge judges a single task. The returned error is fatal: configuration
// errors (ConfigError), I/O errors and cancellation. Every other outcome
// is classified into the result.
func (j *Judger) Judge(ctx context.Context, t *types.JudgeTask, progress client.Progress) (*types.JudgeResult, error) {
	logger := j.getLogger().With(zap.String("id", t.ID))

	prob, err := j.Build(t.Problem)
	if err != nil {
		if errors.Is(err, problem.ErrInvalidConfig) {
			return nil, configError("problem", err)
		}
		return nil, err
	}
	checker, err := NewChecker(prob.Type, j.Executor, j.CheckerPath, j.Checker)
	if err != nil {
		return nil, err
	}

	vars := language.Vars{
		Source:     t.Source,
		Executable: filepath.Join(j.OutputDir, ExecutableName),
	}
	compileArgs, err := j.Get(t.Language, language.TypeCompile, vars)
	if err != nil && !errors.Is(err, language.ErrNoTemplate) {
		return nil, configError("language", err)
	}
	runArgs, err := j.Get(t.Language, language.TypeRun, vars)
	if err != nil {
		return nil, configError("language", err)
	}
	logger.Info("judge started",
		zap.String("language", t.Language),
		zap.String("problem", prob.Dir),
		zap.Strings("compile", compileArgs),
		zap.Strings("run", runArgs),
		zap.Int("caseCount", len(prob.Cases)))

	p := &pipeline{
		Judger:   j,
		logger:   logger,
		task:     t,
		prob:     &prob,
		checker:  checker,
		progress: progress,
		runArgs:  runArgs,
	}
	return p.run(ctx, compileArgs)
}

func (j *Judger) getLogger() *zap.Logger {
	if j.Logger == nil {
		return zap.NewNop()
	}
	return j.Logger
}

// pipeline holds the state of a single judge run
type pipeline struct {
	*Judger
	logger *zap.Logger

	task     *types.JudgeTask
	prob     *problem.Config
	checker  Checker
	runArgs  []string
	state    State
	result   types.JudgeResult
	progress client.Progress

	// serializes progress reports
	mu sync.Mutex
}

func (p *pipeline) run(ctx context.Context, compileArgs []string) (*types.JudgeResult, error) {
	p.result = types.JudgeResult{
		Status:    types.JudgeAccepted,
		CaseCount: len(p.prob.Cases),
	}

	if len(compileArgs) > 0 {
		p.transit(StateCompiling)
		o, err := p.compile(ctx, compileArgs)
		if err != nil {
			return nil, err
		}
		p.compiled(o)
		if !o.ok() {
			p.transit(StateCompileFailed)
			p.compileFailed(o)
			p.transit(StateDone)
			return &p.result, nil
		}
	}

	p.transit(StateRunning)
	outcomes, err := p.runCases(ctx)
	if err != nil {
		return nil, err
	}

	p.transit(StateFinalizing)
	for _, o := range outcomes {
		p.fold(o)
	}
	p.transit(StateDone)
	return &p.result, nil
}

func (p *pipeline) transit(to State) {
	if !p.state.canTransit(to) {
		p.logger.Error("invalid state transition", zap.Stringer("from", p.state), zap.Stringer("to", to))
	}
	p.logger.Debug("state", zap.Stringer("from", p.state), zap.Stringer("to", to))
	p.state = to
}

// compileFailed synthesizes every case from the compile failure
func (p *pipeline) compileFailed(o compileOutcome) {
	p.result.Status = p.result.Status.Degrade(o.judge)
	p.result.Info = o.info
	p.result.Cases = make([]types.CaseResult, len(p.prob.Cases))
	for i := range p.result.Cases {
		p.result.Cases[i] = types.CaseResult{Index: i, Status: o.status}
	}
}

// fold adds a case outcome to the aggregates
func (p *pipeline) fold(o caseOutcome) {
	r := o.result
	p.result.Cases = append(p.result.Cases, r)
	p.result.Score += r.Score
	p.result.Time += r.Time
	p.result.Space = max(p.result.Space, r.Space)
	p.result.Status = p.result.Status.Degrade(o.judge)
}

func (p *pipeline) compiled(o compileOutcome) {
	pc := &types.ProgressCompiled{Status: types.ProgressSucceeded}
	if !o.ok() {
		pc.Status = types.ProgressFailed
		pc.Message = o.info
	}
	if p.progress == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress.Compiled(pc)
}

func (p *pipeline) progressed(r types.CaseResult) {
	if p.progress == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress.Progressed(&types.ProgressProgressed{
		TestCaseIndex: r.Index,
		CaseResult:    r,
	})
}

func (p *pipeline) confine(readWrite bool) *envexec.Confinement {
	if !p.Confine {
		return nil
	}
	c := &envexec.Confinement{
		ReadOnly: []string{filepath.Dir(p.task.Source)},
	}
	if readWrite {
		c.ReadWrite = []string{p.OutputDir}
	} else {
		c.ReadOnly = append(c.ReadOnly, p.OutputDir)
	}
	return c
}

// isSandboxError reports errors of the sandbox itself, they are classified
// as unknown error instead of aborting the run
func isSandboxError(err error) bool {
	var se *envexec.SandboxError
	return errors.As(err, &se)
}
