package process_blob

import (
	"bytes"
	"fmt"
	"os"

	"gocore/process"
	"gocore/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"gopkg.in/yaml.v3"
)

// Description is the YAML form of a process:
//
//	pid: 0x3E81
//	name: basic
//	threads:
//	  - {tid: 0x3E81, stack_pointer: 0x7000}
//	regions:
//	  - {base: 0x1000, size: 0x100, perms: r--p, fill: 0xAA}
type Description struct {
	PID     process.ProcessID   `yaml:"pid"`
	Name    string              `yaml:"name"`
	Threads []ThreadDescription `yaml:"threads"`
	Regions []RegionDescription `yaml:"regions"`
}

type ThreadDescription struct {
	TID          process.ThreadID             `yaml:"tid"`
	StackPointer process.ProcessMemoryAddress `yaml:"stack_pointer"`
}

// RegionDescription is a memory map entry whose bytes are all Fill
type RegionDescription struct {
	memory_map.MemoryMapItem `yaml:",inline"`

	Fill uint8 `yaml:"fill"`
}

// LoadProcessYAML builds a ProcessDump from a YAML description file
func LoadProcessYAML(path string) (*ProcessDump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read process description %q: %w", path, err)
	}
	return ParseProcessYAML(data)
}

// ParseProcessYAML builds a ProcessDump from a YAML description
func ParseProcessYAML(data []byte) (*ProcessDump, error) {
	var desc Description
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parse process description: %w", err)
	}
	return FromDescription(desc)
}

// FromDescription builds a ProcessDump holding the described threads and regions
func FromDescription(desc Description) (*ProcessDump, error) {
	if desc.PID <= 0 {
		return nil, fmt.Errorf("process description has invalid pid %d", desc.PID)
	}

	p := NewProcessDump()
	p.PID = desc.PID
	p.Name = desc.Name
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("dump-%d", desc.PID)))

	for i, region := range desc.Regions {
		if region.Size == 0 {
			return nil, fmt.Errorf("region %d at 0x%x has no size", i, region.Address)
		}
		p.MemoryMap = append(p.MemoryMap, region.MemoryMapItem)
		p.Blobs[region.Address] = bytes.Repeat([]byte{region.Fill}, int(region.Size))
	}
	memory_map.SortByAddress(p.MemoryMap)

	for i := 1; i < len(p.MemoryMap); i++ {
		if p.MemoryMap[i].Address < p.MemoryMap[i-1].End() {
			return nil, fmt.Errorf("region 0x%x overlaps region 0x%x", p.MemoryMap[i].Address, p.MemoryMap[i-1].Address)
		}
	}

	for _, t := range desc.Threads {
		p.AddThread(t.TID, t.StackPointer)
	}

	return p, nil
}
