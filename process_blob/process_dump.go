package process_blob

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gocore/process"
	"gocore/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/klauspost/compress/zstd"
)

// zstd decoders are reusable and safe for concurrent DecodeAll calls
var zstdDecoder, _ = zstd.NewReader(nil)

// ProcessDump implements process.Process for a process that only exists as data:
// a saved blob directory or a YAML description
type ProcessDump struct {
	PID       process.ProcessID
	Name      string
	MemoryMap []memory_map.MemoryMapItem
	Blobs     map[uint64][]byte // Address -> Data

	threads []*DumpThread
	invalid bool
	closed  bool
	log     *logger.Logger
	mu      sync.Mutex
}

var _ process.Process = (*ProcessDump)(nil)

// NewProcessDump creates a new ProcessDump instance
func NewProcessDump() *ProcessDump {
	return &ProcessDump{
		Blobs: make(map[uint64][]byte),
		log:   logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "dump-not-loaded")),
	}
}

// DumpThread is a thread of a ProcessDump
type DumpThread struct {
	owner        *ProcessDump
	pid          process.ProcessID
	tid          process.ThreadID
	stackPointer process.ProcessMemoryAddress
}

var _ process.Thread = (*DumpThread)(nil)

func (t *DumpThread) GetTID() process.ThreadID {
	return t.tid
}

// GetProcess returns the owning dump, nil once it was closed or loaded with another pid
func (t *DumpThread) GetProcess() process.Process {
	if t.owner == nil {
		return nil
	}

	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()

	if t.owner.closed || t.owner.PID != t.pid {
		return nil
	}
	return t.owner
}

func (t *DumpThread) GetStackPointer() (process.ProcessMemoryAddress, error) {
	if t.stackPointer == 0 {
		return 0, process.ErrNoStackPointer
	}
	return t.stackPointer, nil
}

// AddThread appends a thread to the dump and returns it
func (p *ProcessDump) AddThread(tid process.ThreadID, stackPointer process.ProcessMemoryAddress) *DumpThread {
	p.mu.Lock()
	defer p.mu.Unlock()

	t := &DumpThread{owner: p, pid: p.PID, tid: tid, stackPointer: stackPointer}
	p.threads = append(p.threads, t)
	return t
}

// ThreadAtIndex returns the i-th thread, nil when out of range
func (p *ProcessDump) ThreadAtIndex(i int) *DumpThread {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i < 0 || i >= len(p.threads) {
		return nil
	}
	return p.threads[i]
}

// Invalidate marks the process as gone. Every later query fails.
func (p *ProcessDump) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.invalid = true
	if p.log != nil {
		p.log.Infoln("Process invalidated")
	}
}

func (p *ProcessDump) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Blobs = nil
	p.MemoryMap = nil
	p.threads = nil
	p.invalid = true
	p.closed = true
	return nil
}

func (p *ProcessDump) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.PID
}

func (p *ProcessDump) GetName() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.Name
}

func (p *ProcessDump) IsValid() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return !p.invalid
}

func (p *ProcessDump) GetThreads() ([]process.Thread, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.invalid {
		return nil, process.ErrProcessNotOpen
	}

	result := make([]process.Thread, 0, len(p.threads))
	for _, t := range p.threads {
		result = append(result, t)
	}
	return result, nil
}

func (p *ProcessDump) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.invalid {
		return nil, process.ErrProcessNotOpen
	}

	result := make([]memory_map.MemoryMapItem, len(p.MemoryMap))
	copy(result, p.MemoryMap)
	return result, nil
}

func (p *ProcessDump) GetMemoryRegionInfo(addr process.ProcessMemoryAddress) (memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.invalid {
		return memory_map.MemoryMapItem{}, process.ErrProcessNotOpen
	}

	region := memory_map.FindRegion(uint64(addr), p.MemoryMap)
	if region == nil {
		return memory_map.MemoryMapItem{}, process.ErrAddressNotMapped
	}
	return *region, nil
}

func (p *ProcessDump) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.invalid {
		return nil, process.ErrProcessNotOpen
	}

	// Find the region containing the address
	region := memory_map.FindRegion(uint64(addr), p.MemoryMap)
	if region == nil {
		return nil, process.ErrAddressNotMapped
	}

	// Check if we have data for this region
	data, ok := p.Blobs[region.Address]
	if !ok {
		return nil, fmt.Errorf("no data for region 0x%x", region.Address)
	}

	offset := uint64(addr) - region.Address
	if offset+uint64(size) > uint64(len(data)) {
		return nil, fmt.Errorf("read size %d at 0x%x exceeds region data bounds", size, addr)
	}

	result := make([]byte, size)
	copy(result, data[offset:offset+uint64(size)])
	return result, nil
}

// Load reads a blob directory written by the blobdir core writer
func (p *ProcessDump) Load(dirname string) error {
	metadataBytes, err := os.ReadFile(filepath.Join(dirname, MetadataFile))
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(metadataBytes, &metadata); err != nil {
		return fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	mmBytes, err := os.ReadFile(filepath.Join(dirname, MemoryMapFile))
	if err != nil {
		return fmt.Errorf("failed to read memory map: %w", err)
	}

	var mm []memory_map.MemoryMapItem
	if err := json.Unmarshal(mmBytes, &mm); err != nil {
		return fmt.Errorf("failed to unmarshal memory map: %w", err)
	}
	memory_map.SortByAddress(mm)

	blobs := make(map[uint64][]byte, len(mm))
	for _, region := range mm {
		data, err := readBlob(dirname, region, metadata.Compressed)
		if errors.Is(err, os.ErrNotExist) {
			continue // Region was not readable when the core was written
		}
		if err != nil {
			return err
		}
		blobs[region.Address] = data
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.PID = metadata.PID
	p.Name = metadata.Name
	p.MemoryMap = mm
	p.Blobs = blobs
	p.invalid = false
	p.closed = false
	p.threads = nil
	for _, t := range metadata.Threads {
		p.threads = append(p.threads, &DumpThread{owner: p, pid: p.PID, tid: t.TID, stackPointer: t.StackPointer})
	}
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("dump-%d", p.PID)))
	p.log.Infoln("Loaded dump from", dirname, "with", len(blobs), "regions and", len(p.threads), "threads")

	return nil
}

func readBlob(dirname string, region memory_map.MemoryMapItem, compressed bool) ([]byte, error) {
	filename := filepath.Join(dirname, BlobFileName(region, compressed))
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	if compressed {
		data, err = zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress blob %s: %w", filename, err)
		}
	}

	if uint64(len(data)) != uint64(region.Size) {
		return nil, fmt.Errorf("blob %s holds %d bytes, region size is %d", filename, len(data), region.Size)
	}

	return data, nil
}
