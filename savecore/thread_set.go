package savecore

import (
	"reflect"

	"gocore/process"
)

type threadEntry struct {
	key    process.ThreadKey
	thread process.Thread
}

// threadSet is an insertion-ordered set of threads keyed by (pid, tid).
// The key is taken when a thread is added and never recomputed, so a thread
// stays addressable after its process handle is closed or reopened.
// A removed thread that is added again goes to the end.
type threadSet struct {
	order []threadEntry
	index map[process.ThreadKey]int
}

func newThreadSet() threadSet {
	return threadSet{index: make(map[process.ThreadKey]int)}
}

// add appends t under key and reports whether it was not already present
func (s *threadSet) add(key process.ThreadKey, t process.Thread) bool {
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = len(s.order)
	s.order = append(s.order, threadEntry{key: key, thread: t})
	return true
}

// remove deletes t and reports whether it was present. A thread whose
// owner can no longer be resolved is matched by handle identity.
func (s *threadSet) remove(t process.Thread) bool {
	pos, ok := s.index[process.KeyOf(t)]
	if !ok {
		pos, ok = s.find(t)
	}
	if !ok {
		return false
	}

	delete(s.index, s.order[pos].key)
	s.order = append(s.order[:pos], s.order[pos+1:]...)
	for i := pos; i < len(s.order); i++ {
		s.index[s.order[i].key] = i
	}
	return true
}

func (s *threadSet) find(t process.Thread) (int, bool) {
	for i, entry := range s.order {
		if sameThread(entry.thread, t) {
			return i, true
		}
	}
	return 0, false
}

func (s *threadSet) contains(key process.ThreadKey) bool {
	_, ok := s.index[key]
	return ok
}

func (s *threadSet) len() int {
	return len(s.order)
}

func (s *threadSet) threads() []process.Thread {
	result := make([]process.Thread, 0, len(s.order))
	for _, entry := range s.order {
		result = append(result, entry.thread)
	}
	return result
}

// ownedBy returns the members that were added for pid, in insertion order
func (s *threadSet) ownedBy(pid process.ProcessID) []process.Thread {
	result := make([]process.Thread, 0, len(s.order))
	for _, entry := range s.order {
		if entry.key.PID == pid {
			result = append(result, entry.thread)
		}
	}
	return result
}

// sameThread compares two thread handles. Handles of a non-comparable type
// fall back to their (pid, tid) key.
func sameThread(a, b process.Thread) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta != nil && ta.Comparable() {
		return a == b
	}
	return process.KeyOf(a) == process.KeyOf(b)
}
