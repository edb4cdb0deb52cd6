package envexec

import (
	"fmt"
	"os"
)

// prepareCmdFd opens the files bound to stdin, stdout and stderr.
// Files are opened with O_CLOEXEC so only the three mapped descriptors
// reach the child.
func prepareCmdFd(c *Cmd) ([]*os.File, error) {
	stdin, err := openInput(c.Stdin)
	if err != nil {
		return nil, fmt.Errorf("prepare stdin: %w", err)
	}
	stdout, err := openOutput(c.Stdout)
	if err != nil {
		closeFiles(stdin)
		return nil, fmt.Errorf("prepare stdout: %w", err)
	}
	stderr := stdout
	if c.Stderr != c.Stdout {
		stderr, err = openOutput(c.Stderr)
		if err != nil {
			closeFiles(stdin, stdout)
			return nil, fmt.Errorf("prepare stderr: %w", err)
		}
	}
	return []*os.File{stdin, stdout, stderr}, nil
}

func openInput(p string) (*os.File, error) {
	if p == "" {
		p = os.DevNull
	}
	return os.Open(p)
}

func openOutput(p string) (*os.File, error) {
	if p == "" {
		return os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	}
	return os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
}

func getFdArray(fd []*os.File) []uintptr {
	r := make([]uintptr, 0, len(fd))
	for _, f := range fd {
		r = append(r, f.Fd())
	}
	return r
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		if f == nil {
			continue
		}
		f.Close()
	}
}
