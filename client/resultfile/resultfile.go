// Package resultfile writes the judge result as result.yml
package resultfile

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/hydrogen-oj/judger/client"
	"github.com/hydrogen-oj/judger/types"
)

// FileName is the result file inside the output directory
const FileName = "result.yml"

var _ client.Reporter = &Writer{}

// Writer writes the final result into the file opened on creation
type Writer struct {
	f *os.File
}

// Create opens the result file before the judge starts, so an unwritable
// output directory fails early
func Create(p string) (*Writer, error) {
	f, err := os.Create(p)
	if err != nil {
		return nil, fmt.Errorf("open result file: %w", err)
	}
	return &Writer{f: f}, nil
}

// Compiled does nothing
func (w *Writer) Compiled(*types.ProgressCompiled) {}

// Progressed does nothing
func (w *Writer) Progressed(*types.ProgressProgressed) {}

// Finished encodes the result and closes the file
func (w *Writer) Finished(rt *types.JudgeResult) error {
	if w.f == nil {
		return os.ErrClosed
	}
	defer w.Close()

	if err := yaml.NewEncoder(w.f).Encode(rt); err != nil {
		return fmt.Errorf("write result file: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("write result file: %w", err)
	}
	return nil
}

// Close closes the file without writing, it is safe to call twice
func (w *Writer) Close() error {
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
