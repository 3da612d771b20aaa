package process

import "fmt"

// ProcessID represents a unique identifier for a process
type ProcessID int

// ThreadID represents an identifier for a thread, unique within its process
type ThreadID int

func (tid ThreadID) ToString() string {
	return fmt.Sprintf("0x%X", int(tid))
}

// ThreadKey identifies a thread across processes
type ThreadKey struct {
	PID ProcessID
	TID ThreadID
}

// KeyOf returns the identity key of a thread. A thread without an owning
// process gets a zero PID.
func KeyOf(t Thread) ThreadKey {
	key := ThreadKey{TID: t.GetTID()}
	if owner := t.GetProcess(); owner != nil {
		key.PID = owner.GetPID()
	}
	return key
}
