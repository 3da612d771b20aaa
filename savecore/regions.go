package savecore

import (
	"fmt"
	"strings"

	"gocore/process"
	"gocore/process/memory_map"
)

// GetMemoryRegionsToSave returns the regions the current configuration
// selects. It is empty when no valid process is bound, when the style is
// unspecified, or when the process cannot be inspected.
//
// StyleCustomOnly returns the explicitly added regions with their bounds
// unchanged; permissions are refreshed from the process when it knows the
// region. Every other style derives its regions from the process memory map
// and ignores explicit regions.
func (o *SaveCoreOptions) GetMemoryRegionsToSave() []memory_map.MemoryMapItem {
	if !o.hasValidProcess() || o.style == StyleUnspecified {
		return []memory_map.MemoryMapItem{}
	}

	regions, err := o.resolveRegions()
	if err != nil {
		log.Debugln("Failed to resolve regions for process", o.proc.GetPID(), err)
		return []memory_map.MemoryMapItem{}
	}

	return regions
}

func (o *SaveCoreOptions) resolveRegions() ([]memory_map.MemoryMapItem, error) {
	switch o.style {
	case StyleCustomOnly:
		return o.customRegions(), nil
	case StyleFull:
		return o.fullRegions()
	case StyleDirtyPages:
		return o.dirtyRegions()
	case StyleStackOnly:
		return o.stackRegions()
	}
	return nil, fmt.Errorf("unsupported core style %s", o.style)
}

func (o *SaveCoreOptions) customRegions() []memory_map.MemoryMapItem {
	regions := o.regions.items()
	for i := range regions {
		info, err := o.proc.GetMemoryRegionInfo(process.ProcessMemoryAddress(regions[i].Address))
		if err != nil || info.Perms == "" {
			continue
		}
		regions[i].Perms = info.Perms
	}
	return regions
}

// isReadableInProcess reports whether an explicit region starts in a mapped
// region of the bound process that is readable or has unknown permissions
func (o *SaveCoreOptions) isReadableInProcess(region memory_map.MemoryMapItem) bool {
	info, err := o.proc.GetMemoryRegionInfo(process.ProcessMemoryAddress(region.Address))
	if err != nil || !info.Contains(region.Address) {
		return false
	}
	return info.Perms == "" || info.IsReadable()
}

func (o *SaveCoreOptions) fullRegions() ([]memory_map.MemoryMapItem, error) {
	mm, err := o.proc.GetMemoryMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory map: %w", err)
	}

	return filterRegions(mm, memory_map.MemoryMapItem.IsReadable), nil
}

// dirtyRegions keeps readable regions with modified pages. Without dirty
// page information every readable and writable region counts as dirty.
func (o *SaveCoreOptions) dirtyRegions() ([]memory_map.MemoryMapItem, error) {
	mm, err := o.proc.GetMemoryMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory map: %w", err)
	}

	hasDirtyInfo := false
	for _, item := range mm {
		if item.HasDirtyInfo {
			hasDirtyInfo = true
			break
		}
	}

	if !hasDirtyInfo {
		log.Debugln("No dirty page information for process", o.proc.GetPID(), "using writable regions")
		return filterRegions(mm, func(item memory_map.MemoryMapItem) bool {
			return item.IsReadable() && item.IsWritable()
		}), nil
	}

	return filterRegions(mm, func(item memory_map.MemoryMapItem) bool {
		return item.IsReadable() && item.IsDirty()
	}), nil
}

// stackRegions keeps the regions that hold the stack pointer of a saved
// thread. When no stack pointer can be read, regions labelled as stacks are used.
func (o *SaveCoreOptions) stackRegions() ([]memory_map.MemoryMapItem, error) {
	mm, err := o.proc.GetMemoryMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory map: %w", err)
	}
	memory_map.SortByAddress(mm)

	threads := o.threads.ownedBy(o.proc.GetPID())
	if len(threads) == 0 {
		threads, err = o.proc.GetThreads()
		if err != nil {
			return nil, fmt.Errorf("failed to list threads: %w", err)
		}
	}

	var result []memory_map.MemoryMapItem
	seen := make(map[uint64]bool)
	resolved := 0
	for _, t := range threads {
		sp, err := t.GetStackPointer()
		if err != nil {
			log.Debugln("No stack pointer for thread", t.GetTID().ToString(), err)
			continue
		}
		resolved++

		region := memory_map.FindRegion(uint64(sp), mm)
		if region == nil || !region.IsReadable() || seen[region.Address] {
			continue
		}
		seen[region.Address] = true
		result = append(result, *region)
	}

	if resolved == 0 {
		return filterRegions(mm, func(item memory_map.MemoryMapItem) bool {
			return item.IsReadable() && strings.HasPrefix(item.Path, "[stack")
		}), nil
	}

	return result, nil
}

func filterRegions(mm []memory_map.MemoryMapItem, keep func(memory_map.MemoryMapItem) bool) []memory_map.MemoryMapItem {
	result := make([]memory_map.MemoryMapItem, 0, len(mm))
	for _, item := range mm {
		if keep(item) {
			result = append(result, item)
		}
	}
	return result
}
