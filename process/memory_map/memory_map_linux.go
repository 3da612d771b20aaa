//go:build linux

package memory_map

import (
	"fmt"
	"io"
	"os"
)

// LinuxMemoryMap implements MemoryMap for Linux
type LinuxMemoryMap struct{}

var _ MemoryMap = (*LinuxMemoryMap)(nil)

// NewLinuxMemoryMap creates a new LinuxMemoryMap instance
func NewLinuxMemoryMap() *LinuxMemoryMap {
	return &LinuxMemoryMap{}
}

// ReadMemoryMap reads the memory map for a process from /proc/[pid]/smaps,
// falling back to /proc/[pid]/maps when smaps is not readable
func (l *LinuxMemoryMap) ReadMemoryMap(pid int) ([]MemoryMapItem, error) {
	if mm, err := l.readFile(fmt.Sprintf("/proc/%d/smaps", pid), ParseSmaps); err == nil {
		return mm, nil
	}

	return l.readFile(fmt.Sprintf("/proc/%d/maps", pid), ParseMaps)
}

func (l *LinuxMemoryMap) readFile(path string, parse func(io.Reader) ([]MemoryMapItem, error)) ([]MemoryMapItem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	mm, err := parse(file)
	if err != nil {
		return nil, err
	}

	SortByAddress(mm)
	return mm, nil
}
