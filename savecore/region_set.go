package savecore

import "gocore/process/memory_map"

type regionKey struct {
	base uint64
	end  uint64
}

// regionSet is an insertion-ordered set of memory regions keyed by bounds
type regionSet struct {
	order []memory_map.MemoryMapItem
	index map[regionKey]struct{}
}

func newRegionSet() regionSet {
	return regionSet{index: make(map[regionKey]struct{})}
}

func (s *regionSet) add(region memory_map.MemoryMapItem) bool {
	key := regionKey{base: region.Address, end: region.End()}
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = struct{}{}
	s.order = append(s.order, region)
	return true
}

func (s *regionSet) items() []memory_map.MemoryMapItem {
	result := make([]memory_map.MemoryMapItem, len(s.order))
	copy(result, s.order)
	return result
}

func (s *regionSet) len() int {
	return len(s.order)
}
