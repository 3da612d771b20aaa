// Package core_writer saves configured processes as core files through the plugin registry
package core_writer

import (
	"fmt"

	"gocore/plugin"
	"gocore/savecore"
)

// BlobDirPluginName is the name the blob directory writer registers under
const BlobDirPluginName = "blobdir"

// DefaultPluginName is used when the options name no plugin
const DefaultPluginName = BlobDirPluginName

func init() {
	err := plugin.DefaultRegistry.Register(plugin.Plugin{
		Name:        BlobDirPluginName,
		Description: "directory of raw memory blobs with JSON metadata",
		Writer:      NewBlobDirWriter(),
	})
	if err != nil {
		panic(err)
	}
}

// NewOptions returns empty options validated against the default registry
func NewOptions() *savecore.SaveCoreOptions {
	return savecore.NewSaveCoreOptions(plugin.DefaultRegistry)
}

// Save writes the core file described by opts with the plugin it names,
// or DefaultPluginName when it names none. opts is only read.
func Save(registry *plugin.Registry, opts *savecore.SaveCoreOptions) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid save core options: %w", err)
	}

	name, ok := opts.GetPluginName()
	if !ok {
		name = DefaultPluginName
	}

	p, err := registry.Lookup(name)
	if err != nil {
		return err
	}

	return p.Writer.SaveCore(opts)
}
