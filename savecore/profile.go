package savecore

import (
	"fmt"
	"os"

	"gocore/process"
	"gocore/process/memory_map"

	"gopkg.in/yaml.v3"
)

// Profile is a saved SaveCoreOptions configuration, usually read from YAML:
//
//	plugin: blobdir
//	style: custom-only
//	output: /tmp/core.out
//	threads: [101, 102]
//	regions:
//	  - {base: 0x1000, end: 0x1100}
type Profile struct {
	Plugin  string             `yaml:"plugin"`
	Style   Style              `yaml:"style"`
	Output  string             `yaml:"output"`
	Threads []process.ThreadID `yaml:"threads"`
	Regions []ProfileRegion    `yaml:"regions"`
}

// ProfileRegion is a [Base, End) range in a profile
type ProfileRegion struct {
	Base uint64 `yaml:"base"`
	End  uint64 `yaml:"end"`
}

// LoadProfile reads a YAML profile from path
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %q: %w", path, err)
	}
	return ParseProfile(data)
}

// ParseProfile parses a YAML profile
func ParseProfile(data []byte) (*Profile, error) {
	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	for i, region := range profile.Regions {
		if region.End <= region.Base {
			return nil, fmt.Errorf("parse profile: region %d: end 0x%x is not above base 0x%x", i, region.End, region.Base)
		}
	}

	return &profile, nil
}

// Apply binds proc and copies the profile into opts. Application stops at
// the first error; fields applied before it stay applied.
func (p *Profile) Apply(opts *SaveCoreOptions, proc process.Process) error {
	if proc != nil {
		opts.SetProcess(proc)
	}

	if p.Plugin != "" {
		if err := opts.SetPluginName(p.Plugin); err != nil {
			return err
		}
	}
	if p.Style != StyleUnspecified {
		opts.SetStyle(p.Style)
	}
	if p.Output != "" {
		opts.SetOutputFile(p.Output)
	}

	if len(p.Threads) > 0 {
		if proc == nil {
			return fmt.Errorf("%w: profile selects threads", ErrMissingProcess)
		}

		threads, err := proc.GetThreads()
		if err != nil {
			return fmt.Errorf("failed to list threads of process %d: %w", proc.GetPID(), err)
		}
		byID := make(map[process.ThreadID]process.Thread, len(threads))
		for _, t := range threads {
			byID[t.GetTID()] = t
		}

		for _, tid := range p.Threads {
			t, ok := byID[tid]
			if !ok {
				return fmt.Errorf("%w: %s in process %d", process.ErrThreadNotFound, tid.ToString(), proc.GetPID())
			}
			if err := opts.AddThread(t); err != nil {
				return err
			}
		}
	}

	for _, region := range p.Regions {
		if err := opts.AddMemoryRegionToSave(memory_map.NewRegion(region.Base, region.End, "")); err != nil {
			return err
		}
	}

	return nil
}
