package process_blob

import (
	"errors"
	"sync"
	"testing"

	"gocore/process"
)

func TestLoadProcessYAML(t *testing.T) {
	p, err := LoadProcessYAML("testdata/basic_process.yaml")
	if err != nil {
		t.Fatalf("LoadProcessYAML: %v", err)
	}

	if p.GetPID() != 0x3E81 || p.GetName() != "basic" {
		t.Fatalf("unexpected identity pid=%d name=%q", p.GetPID(), p.GetName())
	}

	threads, err := p.GetThreads()
	if err != nil {
		t.Fatalf("GetThreads: %v", err)
	}
	if len(threads) != 3 {
		t.Fatalf("expected 3 threads, got %d", len(threads))
	}
	for _, th := range threads {
		if th.GetProcess().GetPID() != p.GetPID() {
			t.Errorf("thread %d has wrong owner", th.GetTID())
		}
	}

	if sp, err := threads[0].GetStackPointer(); err != nil || sp != 0x7f00 {
		t.Errorf("unexpected stack pointer 0x%x, err %v", sp, err)
	}
	if _, err := threads[2].GetStackPointer(); !errors.Is(err, process.ErrNoStackPointer) {
		t.Errorf("expected ErrNoStackPointer, got %v", err)
	}

	region, err := p.GetMemoryRegionInfo(0x1080)
	if err != nil {
		t.Fatalf("GetMemoryRegionInfo: %v", err)
	}
	if region.Address != 0x1000 || region.End() != 0x1100 || region.Perms != "r--p" {
		t.Errorf("unexpected region %v", region)
	}

	data, err := p.ReadMemory(0x10fe, 2)
	if err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
	if data[0] != 0xAA || data[1] != 0xAA {
		t.Errorf("unexpected data %x", data)
	}

	if _, err := p.ReadMemory(0x10ff, 2); err == nil {
		t.Errorf("expected out of bounds read to fail")
	}
	if _, err := p.GetMemoryRegionInfo(0x5000); !errors.Is(err, process.ErrAddressNotMapped) {
		t.Errorf("expected ErrAddressNotMapped, got %v", err)
	}
}

func TestParseProcessYAMLRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"missing pid":   "name: x\n",
		"empty region":  "pid: 1\nregions:\n  - {base: 0x1000, size: 0}\n",
		"overlap":       "pid: 1\nregions:\n  - {base: 0x1000, size: 0x100}\n  - {base: 0x1080, size: 0x100}\n",
		"not a mapping": "- 1\n- 2\n",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseProcessYAML([]byte(doc)); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestInvalidate(t *testing.T) {
	p, err := LoadProcessYAML("testdata/basic_process.yaml")
	if err != nil {
		t.Fatalf("LoadProcessYAML: %v", err)
	}

	p.Invalidate()

	if p.IsValid() {
		t.Fatalf("expected invalid process")
	}
	if _, err := p.GetMemoryMap(); !errors.Is(err, process.ErrProcessNotOpen) {
		t.Errorf("expected ErrProcessNotOpen, got %v", err)
	}
	if _, err := p.GetThreads(); !errors.Is(err, process.ErrProcessNotOpen) {
		t.Errorf("expected ErrProcessNotOpen, got %v", err)
	}
}

func TestThreadOwnerAfterClose(t *testing.T) {
	p, err := LoadProcessYAML("testdata/basic_process.yaml")
	if err != nil {
		t.Fatalf("LoadProcessYAML: %v", err)
	}

	thread := p.ThreadAtIndex(0)
	if thread.GetProcess() == nil {
		t.Fatalf("expected an owner before Close")
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.GetPID()
			_ = p.GetName()
		}()
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	wg.Wait()

	if thread.GetProcess() != nil {
		t.Errorf("expected no owner after Close")
	}
	if p.GetPID() != 0x3E81 {
		t.Errorf("pid changed on Close: %d", p.GetPID())
	}
}
