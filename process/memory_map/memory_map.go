package memory_map

import (
	"fmt"
	"sort"
)

// MemoryMapItem represents a memory region in a process's address space
type MemoryMapItem struct {
	Address uint64 `json:"address" yaml:"base"` // The starting address of the memory region
	Size    uint   `json:"size" yaml:"size"`    // The size of the memory region in bytes
	Perms   string `json:"perms" yaml:"perms"`  // Permissions (e.g., "r-xp" for read, execute, private)
	Path    string `json:"path,omitempty" yaml:"path"`

	// DirtyBytes is the number of modified bytes in the region, meaningful only when HasDirtyInfo is set
	DirtyBytes   uint64 `json:"dirty_bytes,omitempty" yaml:"dirty_bytes"`
	HasDirtyInfo bool   `json:"has_dirty_info,omitempty" yaml:"has_dirty_info"`
}

// NewRegion builds a region from its [base, end) bounds
func NewRegion(base, end uint64, perms string) MemoryMapItem {
	var size uint
	if end > base {
		size = uint(end - base)
	}
	return MemoryMapItem{Address: base, Size: size, Perms: perms}
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s", mmItem.Address, mmItem.Size, mmItem.Perms)
}

// End returns the first address past the region
func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + uint64(mmItem.Size)
}

// Contains reports whether addr falls inside [Address, End)
func (mmItem MemoryMapItem) Contains(addr uint64) bool {
	return addr >= mmItem.Address && addr < mmItem.End()
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return IsReadablePerms(mmItem.Perms)
}

func (mmItem MemoryMapItem) IsWritable() bool {
	return IsWritablePerms(mmItem.Perms)
}

// IsDirty reports whether the region is known to hold modified pages
func (mmItem MemoryMapItem) IsDirty() bool {
	return mmItem.HasDirtyInfo && mmItem.DirtyBytes > 0
}

// MemoryMap defines the interface for operations related to a process's memory map
type MemoryMap interface {
	// ReadMemoryMap reads and parses the memory map for a process
	ReadMemoryMap(pid int) ([]MemoryMapItem, error)
}

func IsReadablePerms(perms string) bool {
	return len(perms) > 0 && perms[0] == 'r'
}

func IsWritablePerms(perms string) bool {
	return len(perms) > 1 && perms[1] == 'w'
}

// Helper functions for working with memory maps

// SortByAddress sorts the memory map in place. FindRegion requires a sorted map.
func SortByAddress(memoryMap []MemoryMapItem) {
	sort.Slice(memoryMap, func(i, j int) bool {
		return memoryMap[i].Address < memoryMap[j].Address
	})
}

// FindRegion returns the region containing addr using a binary search over a sorted map
func FindRegion(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].End() > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		return &memoryMap[i]
	}

	return nil
}
