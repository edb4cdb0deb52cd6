package env

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/criyle/go-sandbox/pkg/mount"
	"github.com/goccy/go-yaml"
	"github.com/hydrogen-oj/judger/envexec"
)

// Mount defines single mount point configuration.
// type could be bind / tmpfs
type Mount struct {
	Type     string `yaml:"type"`
	Source   string `yaml:"source"`
	Target   string `yaml:"target"`
	Readonly bool   `yaml:"readonly"`
	Data     string `yaml:"data"`
}

// Mounts defines mount points for the confined process.
type Mounts struct {
	Mount      []Mount `yaml:"mount"`
	HostName   string  `yaml:"hostName"`
	DomainName string  `yaml:"domainName"`
	UID        int     `yaml:"uid"`
	GID        int     `yaml:"gid"`
}

func readMountConfig(p string) (*Mounts, error) {
	var m Mounts
	d, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(d, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func parseMountConfig(m *Mounts) ([]Mount, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	ret := make([]Mount, 0, len(m.Mount))
	for _, mt := range m.Mount {
		target := mt.Target
		if path.IsAbs(target) {
			target = path.Clean(target[1:])
		}
		source := mt.Source
		if !path.IsAbs(source) {
			source = path.Join(wd, source)
		}
		switch mt.Type {
		case "bind", "tmpfs":
		default:
			return nil, fmt.Errorf("invalid mount type %q", mt.Type)
		}
		ret = append(ret, Mount{
			Type:     mt.Type,
			Source:   source,
			Target:   target,
			Readonly: mt.Readonly,
			Data:     mt.Data,
		})
	}
	return ret, nil
}

func getDefaultMount() []Mount {
	return []Mount{
		// basic exec and lib
		{Type: "bind", Source: "/bin", Target: "bin", Readonly: true},
		{Type: "bind", Source: "/lib", Target: "lib", Readonly: true},
		{Type: "bind", Source: "/lib64", Target: "lib64", Readonly: true},
		{Type: "bind", Source: "/usr", Target: "usr", Readonly: true},
		// some compiler have multiple version
		{Type: "bind", Source: "/etc/alternatives", Target: "etc/alternatives", Readonly: true},
		// go wants /dev/null
		{Type: "bind", Source: "/dev/null", Target: "dev/null"},
		// tmp dir
		{Type: "tmpfs", Target: "tmp", Data: "size=128m,nr_inodes=4k"},
	}
}

// buildMounts converts the base mounts plus the confined directories into
// mount syscalls relative to the new root
func buildMounts(base []Mount, c *envexec.Confinement) ([]mount.SyscallParams, error) {
	b := mount.NewBuilder()
	for _, m := range base {
		switch m.Type {
		case "bind":
			b.WithBind(m.Source, m.Target, m.Readonly)
		case "tmpfs":
			b.WithTmpfs(m.Target, m.Data)
		}
	}
	if c != nil {
		for _, d := range c.ReadOnly {
			b.WithBind(d, relTarget(d), true)
		}
		for _, d := range c.ReadWrite {
			b.WithBind(d, relTarget(d), false)
		}
	}
	// Build creates file bind targets (like /dev/null) with mknod
	return b.FilterNotExist().Build()
}

// relTarget mounts host directory at the same path inside the new root
func relTarget(dir string) string {
	return strings.TrimPrefix(filepath.Clean(dir), "/")
}
