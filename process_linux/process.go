//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gocore/process"
	"gocore/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	gprocess "github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"
)

// LinuxProcess implements the process.Process interface for Linux systems
type LinuxProcess struct {
	pid  process.ProcessID
	name string
	log  *logger.Logger
	mm   []memory_map.MemoryMapItem
	mu   sync.Mutex
}

var _ process.Process = (*LinuxProcess)(nil)

// New creates a LinuxProcess that is not open yet
func New() *LinuxProcess {
	return &LinuxProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
	}
}

// NewWithPID creates a new LinuxProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (*LinuxProcess, error) {
	p := New()
	err := p.Open(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *LinuxProcess) Open(pid process.ProcessID) error {
	if !procExists(int(pid)) {
		return fmt.Errorf("process with PID %d does not exist", pid)
	}

	name := "unknown"
	if gp, err := gprocess.NewProcess(int32(pid)); err == nil {
		if n, err := gp.Name(); err == nil && n != "" {
			name = n
		}
	}

	p.mu.Lock()
	p.pid = pid
	p.name = name
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))
	p.mu.Unlock()

	if err := p.UpdateMemoryMap(); err != nil {
		return fmt.Errorf("failed to initialize memory map: %w", err)
	}

	p.log.Infoln("Process opened:", name)

	return nil
}

func (p *LinuxProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.Infoln("Closing process")

	// Reset process state
	p.pid = 0
	p.mm = nil

	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	return nil
}

// GetPID returns the process ID
func (p *LinuxProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

func (p *LinuxProcess) GetName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

// IsValid reports whether the process is open and still running
func (p *LinuxProcess) IsValid() bool {
	pid := p.GetPID()
	if pid == 0 {
		return false
	}
	return procExists(int(pid))
}

func (p *LinuxProcess) UpdateMemoryMap() error {
	p.mu.Lock()
	pid := p.pid
	p.mu.Unlock()

	if pid == 0 {
		return process.ErrProcessNotOpen
	}

	// Read memory map without holding the lock
	mm, err := memory_map.NewLinuxMemoryMap().ReadMemoryMap(int(pid))
	if err != nil {
		return fmt.Errorf("failed to read memory map: %w", err)
	}

	p.mu.Lock()
	p.mm = mm
	p.mu.Unlock()
	return nil
}

// GetMemoryMap re-reads the memory map and returns a copy of it
func (p *LinuxProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	if err := p.UpdateMemoryMap(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Make a copy of the memory map to prevent external modification
	result := make([]memory_map.MemoryMapItem, len(p.mm))
	copy(result, p.mm)

	return result, nil
}

// GetMemoryRegionInfo returns the region containing addr. The cached map is
// refreshed once when addr is not found in it.
func (p *LinuxProcess) GetMemoryRegionInfo(addr process.ProcessMemoryAddress) (memory_map.MemoryMapItem, error) {
	if item, ok := p.findRegion(addr); ok {
		return item, nil
	}

	if err := p.UpdateMemoryMap(); err != nil {
		return memory_map.MemoryMapItem{}, err
	}

	if item, ok := p.findRegion(addr); ok {
		return item, nil
	}
	return memory_map.MemoryMapItem{}, process.ErrAddressNotMapped
}

func (p *LinuxProcess) findRegion(addr process.ProcessMemoryAddress) (memory_map.MemoryMapItem, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if item := memory_map.FindRegion(uint64(addr), p.mm); item != nil {
		return *item, true
	}
	return memory_map.MemoryMapItem{}, false
}

// GetThreads lists the threads of the process, sorted by thread id
func (p *LinuxProcess) GetThreads() ([]process.Thread, error) {
	pid := p.GetPID()
	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	tids, err := threadIDs(pid)
	if err != nil {
		return nil, err
	}

	result := make([]process.Thread, 0, len(tids))
	for _, tid := range tids {
		result = append(result, &LinuxThread{owner: p, pid: pid, tid: tid})
	}
	return result, nil
}

// GetThread returns the thread tid of the process
func (p *LinuxProcess) GetThread(tid process.ThreadID) (*LinuxThread, error) {
	pid := p.GetPID()
	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	if _, err := os.Stat(fmt.Sprintf("/proc/%d/task/%d", pid, tid)); err != nil {
		return nil, fmt.Errorf("%w: %s in process %d", process.ErrThreadNotFound, tid.ToString(), pid)
	}
	return &LinuxThread{owner: p, pid: pid, tid: tid}, nil
}

// threadIDs asks gopsutil for the thread list and falls back to /proc/[pid]/task
func threadIDs(pid process.ProcessID) ([]process.ThreadID, error) {
	var tids []process.ThreadID

	gp, err := gprocess.NewProcess(int32(pid))
	if err == nil {
		threads, threadsErr := gp.Threads()
		for tid := range threads {
			tids = append(tids, process.ThreadID(tid))
		}
		err = threadsErr
	}

	if err != nil || len(tids) == 0 {
		entries, dirErr := os.ReadDir(fmt.Sprintf("/proc/%d/task", pid))
		if dirErr != nil {
			return nil, fmt.Errorf("failed to list threads of process %d: %w", pid, errors.Join(err, dirErr))
		}
		tids = tids[:0]
		for _, e := range entries {
			var tid int
			if _, scanErr := fmt.Sscanf(e.Name(), "%d", &tid); scanErr == nil {
				tids = append(tids, process.ThreadID(tid))
			}
		}
	}

	sort.Slice(tids, func(i, j int) bool { return tids[i] < tids[j] })
	return tids, nil
}

// procExists checks for the pid with a null signal. EPERM still means the process exists.
func procExists(pid int) bool {
	if pid <= 0 {
		return false
	}

	err := unix.Kill(pid, 0)
	if err == nil || errors.Is(err, unix.EPERM) {
		return true
	}
	if errors.Is(err, unix.ESRCH) {
		return false
	}

	exists, gerr := gprocess.PidExists(int32(pid))
	return gerr == nil && exists
}
