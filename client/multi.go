package client

import (
	"errors"

	"github.com/hydrogen-oj/judger/types"
)

// Multi reports to every reporter in order
type Multi []Reporter

var _ Reporter = Multi{}

// Compiled calls every reporter
func (m Multi) Compiled(p *types.ProgressCompiled) {
	for _, r := range m {
		r.Compiled(p)
	}
}

// Progressed calls every reporter
func (m Multi) Progressed(p *types.ProgressProgressed) {
	for _, r := range m {
		r.Progressed(p)
	}
}

// Finished calls every reporter and joins their errors
func (m Multi) Finished(rt *types.JudgeResult) error {
	var errs []error
	for _, r := range m {
		if err := r.Finished(rt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
