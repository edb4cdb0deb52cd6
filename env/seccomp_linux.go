//go:build seccomp

package env

import (
	"fmt"
	"os"
	"syscall"

	"github.com/elastic/go-seccomp-bpf"
	"github.com/elastic/go-ucfg/yaml"
	"golang.org/x/net/bpf"
)

// loadSeccompFilter assembles the seccomp policy in the yaml file into a
// socket filter program installed before execve of confined processes.
// A missing file disables the filter.
func loadSeccompFilter(name string) (*syscall.SockFprog, error) {
	if name == "" {
		return nil, nil
	}
	conf, err := yaml.NewConfigWithFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var policy seccomp.Policy
	if err := conf.Unpack(&policy); err != nil {
		return nil, fmt.Errorf("seccomp policy %s: %w", name, err)
	}
	inst, err := policy.Assemble()
	if err != nil {
		return nil, err
	}
	raw, err := bpf.Assemble(inst)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	filter := make([]syscall.SockFilter, len(raw))
	for i, ins := range raw {
		filter[i] = syscall.SockFilter{Code: ins.Op, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	return &syscall.SockFprog{
		Len:    uint16(len(filter)),
		Filter: &filter[0],
	}, nil
}
