//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gocore/process"

	gprocess "github.com/shirou/gopsutil/v4/process"
)

// ListByName returns the PIDs of all processes whose name or executable
// basename equals name, like pidof. The current process is skipped.
func ListByName(name string) ([]process.ProcessID, error) {
	if name == "" {
		return nil, errors.New("empty name")
	}

	procs, err := gprocess.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	selfPID := int32(os.Getpid())
	var out []process.ProcessID
	for _, gp := range procs {
		if gp.Pid == selfPID {
			continue
		}

		if n, err := gp.Name(); err == nil && n == name {
			out = append(out, process.ProcessID(gp.Pid))
			continue
		}

		// May fail for zombies or without permission
		if exe, err := gp.Exe(); err == nil && filepath.Base(exe) == name {
			out = append(out, process.ProcessID(gp.Pid))
		}
	}

	return out, nil
}

// OneByName returns the lowest PID matching name, or os.ErrNotExist if none
func OneByName(name string) (process.ProcessID, error) {
	pids, err := ListByName(name)
	if err != nil {
		return 0, err
	}
	if len(pids) == 0 {
		return 0, fmt.Errorf("no process named %q: %w", name, os.ErrNotExist)
	}

	lowest := pids[0]
	for _, pid := range pids[1:] {
		if pid < lowest {
			lowest = pid
		}
	}
	return lowest, nil
}
