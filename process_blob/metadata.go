package process_blob

import (
	"fmt"

	"gocore/process"
	"gocore/process/memory_map"
)

const (
	MetadataFile  = "metadata.json"
	MemoryMapFile = "process_memory_map.json"
)

// Metadata describes a process saved as a blob directory
type Metadata struct {
	PID        process.ProcessID `json:"pid"`
	Name       string            `json:"name"`
	Plugin     string            `json:"plugin,omitempty"`
	Style      string            `json:"style,omitempty"`
	Threads    []ThreadMetadata  `json:"threads"`
	Regions    int               `json:"regions"`
	TotalBytes uint64            `json:"total_bytes"`
	Compressed bool              `json:"compressed"`
}

// ThreadMetadata is one saved thread
type ThreadMetadata struct {
	TID          process.ThreadID             `json:"tid"`
	StackPointer process.ProcessMemoryAddress `json:"stack_pointer,omitempty"`
}

// BlobFileName returns the file name holding the bytes of region
func BlobFileName(region memory_map.MemoryMapItem, compressed bool) string {
	name := fmt.Sprintf("blob_0x%x_%d.bin", region.Address, region.Size)
	if compressed {
		name += ".zst"
	}
	return name
}
