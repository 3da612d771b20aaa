// Package process provides interfaces and types shared by live and saved processes
package process

import "errors"

// This file holds the sentinel errors shared by every Process implementation.
// The rest of the API surface is split across:
// - types.go: ProcessID, ThreadID
// - memory_types.go: ProcessMemoryAddress, ProcessMemorySize
// - process_interface.go: Process and Thread interfaces

var (
	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrThreadNotFound is returned when a thread id does not belong to the process.
	ErrThreadNotFound = errors.New("thread not found")

	ErrNoStackPointer = errors.New("stack pointer unavailable")
)

// SameProcess reports whether a and b refer to the same process.
// Two handles are the same process when both are non-nil and their PIDs match.
func SameProcess(a, b Process) bool {
	if a == nil || b == nil {
		return false
	}
	return a.GetPID() == b.GetPID()
}
