//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gocore/process"
)

// LinuxThread is a thread of a LinuxProcess
type LinuxThread struct {
	owner *LinuxProcess
	pid   process.ProcessID
	tid   process.ThreadID
}

var _ process.Thread = (*LinuxThread)(nil)

func (t *LinuxThread) GetTID() process.ThreadID {
	return t.tid
}

// GetProcess returns the owning process, nil once it was closed or reopened on another pid
func (t *LinuxThread) GetProcess() process.Process {
	if t.owner == nil || t.owner.GetPID() != t.pid {
		return nil
	}
	return t.owner
}

// GetStackPointer reads the stack pointer from /proc/[pid]/task/[tid]/syscall.
// The file is only readable with ptrace access and reports no registers for a running thread.
func (t *LinuxThread) GetStackPointer() (process.ProcessMemoryAddress, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/task/%d/syscall", t.pid, t.tid))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", process.ErrNoStackPointer, err)
	}
	return parseSyscallStackPointer(string(data))
}

// parseSyscallStackPointer extracts the stack pointer from a syscall file:
// "nr arg0 ... arg5 sp pc" while blocked in a syscall, "-1 sp pc" when
// blocked outside one and "running" otherwise
func parseSyscallStackPointer(content string) (process.ProcessMemoryAddress, error) {
	fields := strings.Fields(content)
	if len(fields) < 3 {
		return 0, fmt.Errorf("%w: %q", process.ErrNoStackPointer, strings.TrimSpace(content))
	}

	sp, err := strconv.ParseUint(strings.TrimPrefix(fields[len(fields)-2], "0x"), 16, 64)
	if err != nil || sp == 0 {
		return 0, fmt.Errorf("%w: bad stack pointer %q", process.ErrNoStackPointer, fields[len(fields)-2])
	}
	return process.ProcessMemoryAddress(sp), nil
}
