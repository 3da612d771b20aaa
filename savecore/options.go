// Package savecore describes which parts of a process a core file should capture
// and computes the size of the result before anything is written.
//
// A SaveCoreOptions is a single-owner value: it is not safe for concurrent
// mutation. The bound process is a handle only and is re-checked on every query.
package savecore

import (
	"fmt"
	"math"
	"strings"

	"gocore/process"
	"gocore/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

var log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "savecore"))

// PluginRegistry validates core writer plugin names
type PluginRegistry interface {
	IsValidPluginName(name string) bool
}

// SaveCoreOptions holds the configuration of a single core save
type SaveCoreOptions struct {
	registry PluginRegistry

	proc       process.Process
	pluginName string
	outputFile string
	style      Style
	threads    threadSet
	regions    regionSet
}

// NewSaveCoreOptions creates empty options. Plugin names are validated
// against registry; with a nil registry only the empty name is accepted.
func NewSaveCoreOptions(registry PluginRegistry) *SaveCoreOptions {
	return &SaveCoreOptions{
		registry: registry,
		threads:  newThreadSet(),
		regions:  newRegionSet(),
	}
}

// SetPluginName selects the core writer. An empty name clears the selection.
// An unknown name fails and leaves the current selection in place.
func (o *SaveCoreOptions) SetPluginName(name string) error {
	if name == "" {
		o.pluginName = ""
		return nil
	}

	if o.registry == nil || !o.registry.IsValidPluginName(name) {
		log.Debugln("Rejected plugin name", name)
		return fmt.Errorf("%w: %q is not a registered core writer", ErrInvalidPluginName, name)
	}

	o.pluginName = name
	return nil
}

// GetPluginName returns the selected plugin name, ok is false when unset
func (o *SaveCoreOptions) GetPluginName() (string, bool) {
	return o.pluginName, o.pluginName != ""
}

func (o *SaveCoreOptions) SetStyle(style Style) {
	o.style = style
}

func (o *SaveCoreOptions) GetStyle() Style {
	return o.style
}

func (o *SaveCoreOptions) SetOutputFile(path string) {
	o.outputFile = path
}

// GetOutputFile returns the output path, ok is false when unset
func (o *SaveCoreOptions) GetOutputFile() (string, bool) {
	return o.outputFile, o.outputFile != ""
}

// SetProcess binds the process to save. Threads added under a previous
// process stay in the selection but are ignored by every query until that
// process is bound again. A nil process unbinds.
func (o *SaveCoreOptions) SetProcess(proc process.Process) {
	o.proc = proc
}

// GetProcess returns the bound process, or nil
func (o *SaveCoreOptions) GetProcess() process.Process {
	return o.proc
}

// AddThread adds t to the threads to save. When no process is bound the
// thread's process becomes the bound process. A thread owned by any other
// process is rejected without changing the options.
func (o *SaveCoreOptions) AddThread(t process.Thread) error {
	if t == nil {
		return fmt.Errorf("%w: nil thread", ErrProcessMismatch)
	}

	owner := t.GetProcess()
	if owner == nil {
		return fmt.Errorf("%w: thread %s has no owning process", ErrProcessMismatch, t.GetTID().ToString())
	}

	if o.proc == nil {
		o.proc = owner
	} else if !process.SameProcess(o.proc, owner) {
		log.Debugln("Rejected thread", t.GetTID().ToString(), "from process", owner.GetPID())
		return fmt.Errorf("%w: thread %s belongs to process %d, options target process %d",
			ErrProcessMismatch, t.GetTID().ToString(), owner.GetPID(), o.proc.GetPID())
	}

	o.threads.add(process.ThreadKey{PID: owner.GetPID(), TID: t.GetTID()}, t)
	return nil
}

// RemoveThread removes t and reports whether it was present
func (o *SaveCoreOptions) RemoveThread(t process.Thread) bool {
	if t == nil {
		return false
	}
	return o.threads.remove(t)
}

// GetThreadsToSave returns the selected threads of the bound process in the
// order they were added. With no process bound every selected thread is returned.
func (o *SaveCoreOptions) GetThreadsToSave() []process.Thread {
	if o.proc == nil {
		return o.threads.threads()
	}
	return o.threads.ownedBy(o.proc.GetPID())
}

// GetThreadIDsToSave returns the ids of GetThreadsToSave
func (o *SaveCoreOptions) GetThreadIDsToSave() []process.ThreadID {
	threads := o.GetThreadsToSave()
	result := make([]process.ThreadID, 0, len(threads))
	for _, t := range threads {
		result = append(result, t.GetTID())
	}
	return result
}

// ShouldThreadBeSaved reports whether tid of the bound process is part of the
// core. An empty selection saves every thread.
func (o *SaveCoreOptions) ShouldThreadBeSaved(tid process.ThreadID) bool {
	if o.proc == nil {
		return o.threads.len() == 0
	}

	selected := o.threads.ownedBy(o.proc.GetPID())
	if len(selected) == 0 {
		return true
	}
	return o.threads.contains(process.ThreadKey{PID: o.proc.GetPID(), TID: tid})
}

// AddMemoryRegionToSave adds an explicit region. Regions are identified by
// their bounds; adding the same bounds twice keeps the first one.
func (o *SaveCoreOptions) AddMemoryRegionToSave(region memory_map.MemoryMapItem) error {
	if region.Size == 0 {
		return fmt.Errorf("%w: empty region at 0x%x", ErrInvalidRegion, region.Address)
	}
	if uint64(region.Size)-1 > math.MaxUint64-region.Address {
		return fmt.Errorf("%w: region at 0x%x wraps the address space", ErrInvalidRegion, region.Address)
	}

	o.regions.add(region)
	return nil
}

// GetCurrentSizeInBytes returns the number of memory bytes the current
// configuration would save. The result is computed from the current state on
// every call. With StyleCustomOnly a region only counts when its start lies in
// a readable region of the process.
func (o *SaveCoreOptions) GetCurrentSizeInBytes() (uint64, error) {
	if !o.hasValidProcess() {
		return 0, ErrMissingProcess
	}
	if o.style == StyleUnspecified {
		return 0, ErrMissingStyle
	}

	regions, err := o.resolveRegions()
	if err != nil {
		log.Debugln("Failed to resolve regions for process", o.proc.GetPID(), err)
		return 0, fmt.Errorf("%w: %v", ErrNoValidRegions, err)
	}

	var total uint64
	for _, region := range regions {
		if o.style == StyleCustomOnly && !o.isReadableInProcess(region) {
			log.Debugln("Not counting region", region.String(), "of process", o.proc.GetPID())
			continue
		}
		total += region.End() - region.Address
	}

	if total == 0 {
		return 0, fmt.Errorf("%w: style %s selects no readable bytes", ErrNoValidRegions, o.style)
	}

	return total, nil
}

// Validate checks that the options are complete enough to write a core
func (o *SaveCoreOptions) Validate() error {
	if !o.hasValidProcess() {
		return ErrMissingProcess
	}
	if o.style == StyleUnspecified {
		return ErrMissingStyle
	}
	if o.outputFile == "" {
		return ErrMissingOutputFile
	}
	if o.style == StyleCustomOnly && o.regions.len() == 0 {
		return fmt.Errorf("%w: style %s requires explicit regions", ErrNoValidRegions, o.style)
	}

	pid := o.proc.GetPID()
	if stale := o.threads.len() - len(o.threads.ownedBy(pid)); stale > 0 {
		return fmt.Errorf("%w: %d selected threads belong to another process than %d", ErrProcessMismatch, stale, pid)
	}

	return nil
}

// Clear restores every field to its default
func (o *SaveCoreOptions) Clear() {
	o.proc = nil
	o.pluginName = ""
	o.outputFile = ""
	o.style = StyleUnspecified
	o.threads = newThreadSet()
	o.regions = newRegionSet()
}

func (o *SaveCoreOptions) String() string {
	var sb strings.Builder
	sb.WriteString("SaveCoreOptions(")
	if o.proc != nil {
		fmt.Fprintf(&sb, "pid=%d", o.proc.GetPID())
	} else {
		sb.WriteString("pid=none")
	}
	fmt.Fprintf(&sb, ", style=%s", o.style)
	if o.pluginName != "" {
		fmt.Fprintf(&sb, ", plugin=%s", o.pluginName)
	}
	if o.outputFile != "" {
		fmt.Fprintf(&sb, ", output=%s", o.outputFile)
	}
	fmt.Fprintf(&sb, ", threads=%d, regions=%d)", o.threads.len(), o.regions.len())
	return sb.String()
}

func (o *SaveCoreOptions) hasValidProcess() bool {
	return o.proc != nil && o.proc.IsValid()
}
