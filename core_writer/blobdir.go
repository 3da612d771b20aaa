package core_writer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gocore/process"
	"gocore/process/memory_map"
	"gocore/process_blob"
	"gocore/savecore"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/klauspost/compress/zstd"
)

const (
	DefaultMaxRegionSize = 100 * 1024 * 1024 // 100 MB
	DefaultTimeout       = 30 * time.Second
)

// zstd encoders are reusable and safe for concurrent EncodeAll calls
var zstdEncoder, _ = zstd.NewWriter(nil)

// BlobDirWriter writes a core as a directory: metadata.json,
// process_memory_map.json and one blob file per saved region.
// process_blob.ProcessDump.Load reads it back.
type BlobDirWriter struct {
	// Compress stores blobs zstd-compressed
	Compress bool
	// MaxRegionSize skips larger regions, 0 disables the limit
	MaxRegionSize uint
	// Timeout aborts a save that takes longer, 0 disables the limit
	Timeout time.Duration

	log *logger.Logger
}

// NewBlobDirWriter creates a BlobDirWriter with the default limits
func NewBlobDirWriter() *BlobDirWriter {
	return &BlobDirWriter{
		MaxRegionSize: DefaultMaxRegionSize,
		Timeout:       DefaultTimeout,
		log:           logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, BlobDirPluginName)),
	}
}

// SaveCore writes the regions and threads selected by opts into the
// directory named by the output file
func (w *BlobDirWriter) SaveCore(opts *savecore.SaveCoreOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	dirname, _ := opts.GetOutputFile()
	proc := opts.GetProcess()

	total, err := opts.GetCurrentSizeInBytes()
	if err != nil {
		return err
	}
	regions := opts.GetMemoryRegionsToSave()

	if err := os.MkdirAll(dirname, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	w.log.Infoln("Saving process", proc.GetPID(), "to directory:", dirname, "style:", opts.GetStyle(), "bytes:", total)

	threads, err := w.threadMetadata(opts)
	if err != nil {
		return err
	}

	pluginName, _ := opts.GetPluginName()
	metadata := process_blob.Metadata{
		PID:        proc.GetPID(),
		Name:       proc.GetName(),
		Plugin:     pluginName,
		Style:      opts.GetStyle().String(),
		Threads:    threads,
		Regions:    len(regions),
		TotalBytes: total,
		Compressed: w.Compress,
	}
	if err := writeJSON(filepath.Join(dirname, process_blob.MetadataFile), metadata); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dirname, process_blob.MemoryMapFile), regions); err != nil {
		return err
	}

	var deadline time.Time
	if w.Timeout > 0 {
		deadline = time.Now().Add(w.Timeout)
	}

	regionTypeStats := map[string]int{
		"skipped_non_readable": 0,
		"skipped_too_large":    0,
		"read_error":           0,
		"write_error":          0,
		"saved":                0,
	}

	for i, region := range regions {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return fmt.Errorf("save operation timed out after %v", w.Timeout)
		}

		w.log.Debugln("Processing region", i+1, "of", len(regions), fmt.Sprintf("0x%x", region.Address), region.Size, region.Perms)

		// Permissions are best-effort: unknown permissions are attempted
		if region.Perms != "" && !region.IsReadable() {
			regionTypeStats["skipped_non_readable"]++
			continue
		}

		if w.MaxRegionSize > 0 && region.Size > w.MaxRegionSize {
			w.log.Infoln("Skipping large region at", fmt.Sprintf("%x", region.Address),
				"(size:", region.Size/1024/1024, "MB)")
			regionTypeStats["skipped_too_large"]++
			continue
		}

		data, err := proc.ReadMemory(process.ProcessMemoryAddress(region.Address), process.ProcessMemorySize(region.Size))
		if err != nil {
			w.log.Infoln("Failed to read memory region at", fmt.Sprintf("%x", region.Address), ":", err)
			regionTypeStats["read_error"]++
			continue
		}

		if err := w.writeBlob(dirname, region, data); err != nil {
			w.log.Infoln("Failed to write memory file for region at", fmt.Sprintf("%x", region.Address), ":", err)
			regionTypeStats["write_error"]++
			continue
		}

		regionTypeStats["saved"]++
	}

	w.log.Infoln("Region statistics:", regionTypeStats)

	if regionTypeStats["saved"] == 0 {
		return fmt.Errorf("%w: none of %d regions could be saved", savecore.ErrNoValidRegions, len(regions))
	}

	w.log.Infoln("Core saved successfully:", regionTypeStats["saved"], "regions saved,",
		regionTypeStats["read_error"]+regionTypeStats["write_error"], "errors")

	return nil
}

// threadMetadata lists the process threads the options select
func (w *BlobDirWriter) threadMetadata(opts *savecore.SaveCoreOptions) ([]process_blob.ThreadMetadata, error) {
	threads, err := opts.GetProcess().GetThreads()
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	result := make([]process_blob.ThreadMetadata, 0, len(threads))
	for _, t := range threads {
		if !opts.ShouldThreadBeSaved(t.GetTID()) {
			continue
		}

		entry := process_blob.ThreadMetadata{TID: t.GetTID()}
		if sp, err := t.GetStackPointer(); err == nil {
			entry.StackPointer = sp
		}
		result = append(result, entry)
	}

	return result, nil
}

func (w *BlobDirWriter) writeBlob(dirname string, region memory_map.MemoryMapItem, data []byte) error {
	if w.Compress {
		data = zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2))
	}

	filename := filepath.Join(dirname, process_blob.BlobFileName(region, w.Compress))
	return os.WriteFile(filename, data, 0644)
}

func writeJSON(filename string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(filename), err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(filename), err)
	}
	return nil
}
