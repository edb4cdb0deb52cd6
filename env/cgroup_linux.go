package env

import (
	"context"
	"fmt"
	"os"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/criyle/go-sandbox/pkg/cgroup"
	ddbus "github.com/godbus/dbus/v5"
)

// setupCgroup creates the parent cgroup of the executions under prefix.
// It returns nil without error when cgroup is not usable, the environment
// then falls back to rlimit and procfs sampling.
func setupCgroup(c Config) (cgroup.Cgroup, *cgroup.Controllers) {
	if c.CgroupPrefix == "" {
		return nil, nil
	}
	t := cgroup.DetectedCgroupType
	ct, err := cgroup.GetAvailableController()
	if err != nil {
		c.Warn("Failed to get available cgroup controllers, falling back to rlimit / procfs mode: ", err)
		return nil, nil
	}

	prefix := c.CgroupPrefix
	if t == cgroup.TypeV2 {
		prefix, ct, err = setupCgroupV2(c)
		if err != nil {
			c.Warn("Failed to create cgroup v2 scope, falling back to rlimit / procfs mode: ", err)
			return nil, nil
		}
	}
	return createAndNestCgroup(c, prefix, ct)
}

// setupCgroupV2 moves the judger into a delegated transient scope, the scope
// name carries the pid so concurrent judgers do not replace each other
func setupCgroupV2(c Config) (string, *cgroup.Controllers, error) {
	c.Info("Running with cgroup v2, connecting systemd dbus to create cgroup")
	conn, err := getSystemdConnection()
	if err != nil {
		c.Info("Connecting to systemd dbus failed, assuming running in container and take control of the whole cgroupfs: ", err)
		ct, err := cgroup.GetAvailableControllerWithPrefix("")
		return "", ct, err
	}
	defer conn.Close()

	scopeName := fmt.Sprintf("%s-%d.scope", c.CgroupPrefix, os.Getpid())
	c.Info("Connected to systemd bus, attempting to create transient unit: ", scopeName)
	if err := startTransientUnit(conn, scopeName); err != nil {
		return "", nil, err
	}

	prefix, err := cgroup.GetCurrentCgroupPrefix()
	if err != nil {
		return "", nil, fmt.Errorf("failed to get current cgroup prefix: %w", err)
	}
	c.Info("Current cgroup: ", prefix)

	ct, err := cgroup.GetAvailableControllerWithPrefix(prefix)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available controller with prefix: %w", err)
	}
	return prefix, ct, nil
}

func getSystemdConnection() (*dbus.Conn, error) {
	if os.Getuid() == 0 {
		return dbus.NewSystemConnectionContext(context.TODO())
	}
	return dbus.NewUserConnectionContext(context.TODO())
}

func startTransientUnit(conn *dbus.Conn, scopeName string) error {
	properties := []dbus.Property{
		dbus.PropDescription("hoj judger - runs submissions against test cases"),
		dbus.PropWants(scopeName),
		dbus.PropPids(uint32(os.Getpid())),
		newSystemdProperty("Delegate", true),
	}
	ch := make(chan string, 1)
	if _, err := conn.StartTransientUnitContext(context.TODO(), scopeName, "replace", properties, ch); err != nil {
		return fmt.Errorf("failed to start transient unit: %w", err)
	}
	if s := <-ch; s != "done" {
		return fmt.Errorf("starting transient unit returns error: %s", s)
	}
	return nil
}

// createAndNestCgroup moves the judger into prefix/judger and returns
// prefix/executions, per-execution cgroups are created inside it
func createAndNestCgroup(c Config, prefix string, ct *cgroup.Controllers) (cgroup.Cgroup, *cgroup.Controllers) {
	cgb, err := cgroup.New(prefix, ct)
	if err != nil {
		c.Warn("No permission on cgroup, falling back to rlimit / procfs mode: ", err)
		return nil, nil
	}
	if _, err = cgb.Nest("judger"); err != nil {
		c.Warn("Creating judger cgroup with error, falling back to rlimit / procfs mode: ", err)
		cgb.Destroy()
		return nil, nil
	}
	cg, err := cgb.New("executions")
	if err != nil {
		c.Warn("Creating executions cgroup with error, falling back to rlimit / procfs mode: ", err)
		return nil, nil
	}
	if ct != nil && !ct.Memory {
		c.Warn("memory cgroup is not enabled, memory is only limited by sampling")
	}
	if ct != nil && !ct.Pids {
		c.Warn("pid cgroup is not enabled, process limit is only enforced by sampling")
	}
	return cg, ct
}

func cgroupInfo(cg cgroup.Cgroup, ct *cgroup.Controllers) (int, []string) {
	cgroupType := int(cgroup.DetectedCgroupType)
	if cg == nil {
		cgroupType = 0
	}
	controllers := []string{}
	if ct != nil {
		controllers = ct.Names()
	}
	return cgroupType, controllers
}

func newSystemdProperty(name string, units any) dbus.Property {
	return dbus.Property{
		Name:  name,
		Value: ddbus.MakeVariant(units),
	}
}
