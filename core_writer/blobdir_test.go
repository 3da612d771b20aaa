package core_writer

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gocore/plugin"
	"gocore/process"
	"gocore/process/memory_map"
	"gocore/process_blob"
	"gocore/savecore"
)

const fixture = `
pid: 0x3E81
name: basic
threads:
  - {tid: 0x3E81, stack_pointer: 0x7f00}
  - {tid: 0x3E82}
regions:
  - {base: 0x1000, size: 0x100, perms: r--p, fill: 0xAA}
  - {base: 0x2000, size: 0x1000, perms: rw-p, fill: 0x01}
  - {base: 0x7000, size: 0x1000, perms: rw-p, path: "[stack]", fill: 0x5A}
  - {base: 0xb000, size: 0x1000, perms: "---p"}
`

func newFixture(t *testing.T) *process_blob.ProcessDump {
	t.Helper()
	proc, err := process_blob.ParseProcessYAML([]byte(fixture))
	if err != nil {
		t.Fatalf("ParseProcessYAML: %v", err)
	}
	return proc
}

func TestSaveRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "raw"
		if compress {
			name = "zstd"
		}

		t.Run(name, func(t *testing.T) {
			proc := newFixture(t)
			dir := filepath.Join(t.TempDir(), "core")

			opts := NewOptions()
			opts.SetProcess(proc)
			opts.SetStyle(savecore.StyleFull)
			opts.SetOutputFile(dir)
			if err := opts.AddThread(proc.ThreadAtIndex(0)); err != nil {
				t.Fatalf("AddThread: %v", err)
			}

			writer := NewBlobDirWriter()
			writer.Compress = compress
			if err := writer.SaveCore(opts); err != nil {
				t.Fatalf("SaveCore: %v", err)
			}

			if _, err := os.Stat(filepath.Join(dir, process_blob.BlobFileName(memory_map.NewRegion(0x1000, 0x1100, ""), compress))); err != nil {
				t.Fatalf("expected blob file: %v", err)
			}

			loaded := process_blob.NewProcessDump()
			if err := loaded.Load(dir); err != nil {
				t.Fatalf("Load: %v", err)
			}

			if loaded.GetPID() != proc.GetPID() || loaded.GetName() != "basic" {
				t.Errorf("unexpected identity %d %q", loaded.GetPID(), loaded.GetName())
			}

			threads, err := loaded.GetThreads()
			if err != nil {
				t.Fatalf("GetThreads: %v", err)
			}
			if len(threads) != 1 || threads[0].GetTID() != 0x3E81 {
				t.Fatalf("expected only thread 0x3E81, got %d threads", len(threads))
			}
			if sp, _ := threads[0].GetStackPointer(); sp != 0x7f00 {
				t.Errorf("stack pointer not preserved: 0x%x", sp)
			}

			mm, err := loaded.GetMemoryMap()
			if err != nil {
				t.Fatalf("GetMemoryMap: %v", err)
			}
			if len(mm) != 3 {
				t.Fatalf("expected 3 readable regions, got %d", len(mm))
			}

			data, err := loaded.ReadMemory(0x7000, 4)
			if err != nil {
				t.Fatalf("ReadMemory: %v", err)
			}
			if !bytes.Equal(data, []byte{0x5A, 0x5A, 0x5A, 0x5A}) {
				t.Errorf("unexpected data %x", data)
			}
		})
	}
}

func TestSaveCustomRegions(t *testing.T) {
	proc := newFixture(t)
	dir := filepath.Join(t.TempDir(), "core")

	opts := NewOptions()
	opts.SetProcess(proc)
	opts.SetStyle(savecore.StyleCustomOnly)
	opts.SetOutputFile(dir)
	if err := opts.AddMemoryRegionToSave(memory_map.NewRegion(0x2000, 0x2800, "")); err != nil {
		t.Fatalf("AddMemoryRegionToSave: %v", err)
	}
	if err := opts.SetPluginName(BlobDirPluginName); err != nil {
		t.Fatalf("SetPluginName: %v", err)
	}

	if err := Save(plugin.DefaultRegistry, opts); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := process_blob.NewProcessDump()
	if err := loaded.Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}

	region, err := loaded.GetMemoryRegionInfo(0x2000)
	if err != nil {
		t.Fatalf("GetMemoryRegionInfo: %v", err)
	}
	if region.End() != 0x2800 || region.Perms != "rw-p" {
		t.Errorf("unexpected region %v", region)
	}

	// Every thread is saved when none is selected
	threads, _ := loaded.GetThreads()
	if len(threads) != 2 {
		t.Errorf("expected 2 threads, got %d", len(threads))
	}
}

func TestSaveRejectsIncompleteOptions(t *testing.T) {
	opts := NewOptions()
	opts.SetProcess(newFixture(t))
	opts.SetStyle(savecore.StyleFull)

	if err := Save(plugin.DefaultRegistry, opts); !errors.Is(err, savecore.ErrMissingOutputFile) {
		t.Fatalf("expected ErrMissingOutputFile, got %v", err)
	}
}

func TestSaveUnknownPlugin(t *testing.T) {
	proc := newFixture(t)

	opts := NewOptions()
	opts.SetProcess(proc)
	opts.SetStyle(savecore.StyleFull)
	opts.SetOutputFile(t.TempDir())

	// No plugin named: the default writer is missing from an empty registry
	if err := Save(plugin.NewRegistry(), opts); !errors.Is(err, plugin.ErrPluginNotFound) {
		t.Fatalf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestSaveUnreadableRegions(t *testing.T) {
	proc := newFixture(t)

	opts := NewOptions()
	opts.SetProcess(proc)
	opts.SetStyle(savecore.StyleCustomOnly)
	opts.SetOutputFile(filepath.Join(t.TempDir(), "core"))
	// Mapped but not readable: permissions resolve to ---p
	if err := opts.AddMemoryRegionToSave(memory_map.NewRegion(0xb000, 0xc000, "")); err != nil {
		t.Fatalf("AddMemoryRegionToSave: %v", err)
	}

	err := NewBlobDirWriter().SaveCore(opts)
	if !errors.Is(err, savecore.ErrNoValidRegions) {
		t.Fatalf("expected ErrNoValidRegions, got %v", err)
	}
}

func TestDefaultRegistryHasBlobDir(t *testing.T) {
	if !plugin.DefaultRegistry.IsValidPluginName(BlobDirPluginName) {
		t.Fatalf("blobdir is not registered")
	}

	proc := newFixture(t)
	opts := NewOptions()
	if err := opts.AddThread(proc.ThreadAtIndex(1)); err != nil {
		t.Fatalf("AddThread: %v", err)
	}
	if got := opts.GetThreadIDsToSave(); len(got) != 1 || got[0] != process.ThreadID(0x3E82) {
		t.Errorf("unexpected thread ids %v", got)
	}
}
