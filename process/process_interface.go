package process

import (
	"gocore/process/memory_map"
)

// Process is the interface that defines the introspection a core save needs from a process.
// Implementations are handles: holding one never keeps the underlying process alive.
type Process interface {
	// GetPID returns the process ID
	GetPID() ProcessID

	// GetName returns a best-effort process name
	GetName() string

	// IsValid reports whether the process can still be inspected
	IsValid() bool

	// GetThreads returns the threads of the process
	GetThreads() ([]Thread, error)

	// GetMemoryMap returns a copy of the current memory map, sorted by address
	GetMemoryMap() ([]memory_map.MemoryMapItem, error)

	// GetMemoryRegionInfo returns the mapped region containing addr
	GetMemoryRegionInfo(addr ProcessMemoryAddress) (memory_map.MemoryMapItem, error)

	// ReadMemory reads memory from the process at the specified address
	ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)
}

// Thread is a single thread of a process
type Thread interface {
	// GetTID returns the thread ID
	GetTID() ThreadID

	// GetProcess returns the owning process, nil when unknown
	GetProcess() Process

	// GetStackPointer returns the current stack pointer of the thread
	GetStackPointer() (ProcessMemoryAddress, error)
}
