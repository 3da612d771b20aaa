package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gocore/core_writer"
	"gocore/plugin"
	"gocore/process"
	"gocore/savecore"
)

// target is a process that can be saved and released
type target interface {
	process.Process
	Close() error
}

func main() {
	pidFlag := flag.Int("pid", 0, "Process ID to save")
	nameFlag := flag.String("name", "", "Process name to save, used when --pid is not set")
	outputFlag := flag.String("output", "", "Output path of the core")
	styleFlag := flag.String("style", "", "Save style: full, dirty-pages, stack-only or custom-only")
	pluginFlag := flag.String("plugin", "", "Core writer plugin (default "+core_writer.DefaultPluginName+")")
	profileFlag := flag.String("profile", "", "YAML profile with plugin, style, output, threads and regions")
	threadsFlag := flag.String("threads", "", "Comma separated thread IDs to save (default all)")
	compressFlag := flag.Bool("compress", false, "zstd-compress region blobs")
	dryRunFlag := flag.Bool("dry-run", false, "Print the estimated size and exit")
	listFlag := flag.Bool("list-plugins", false, "List the available plugins and exit")
	flag.Parse()

	registry := newRegistry(*compressFlag)

	if *listFlag {
		for _, name := range registry.Names() {
			p, _ := registry.Lookup(name)
			fmt.Printf("%-10s %s\n", name, p.Description)
		}
		return
	}

	pid := process.ProcessID(*pidFlag)
	if pid == 0 && *nameFlag != "" {
		found, err := findProcess(*nameFlag)
		if err != nil {
			fmt.Printf("Error finding process %q: %v\n", *nameFlag, err)
			os.Exit(1)
		}
		pid = found
	}

	if pid == 0 {
		fmt.Println("Error: --pid or --name is required")
		flag.Usage()
		os.Exit(1)
	}

	proc, err := getProcess(pid)
	if err != nil {
		fmt.Printf("Error attaching to process %d: %v\n", pid, err)
		os.Exit(1)
	}
	defer proc.Close()

	fmt.Printf("Attached to process %d (%s)\n", pid, proc.GetName())

	opts := savecore.NewSaveCoreOptions(registry)
	opts.SetProcess(proc)

	if *profileFlag != "" {
		profile, err := savecore.LoadProfile(*profileFlag)
		if err != nil {
			fmt.Printf("Error loading profile: %v\n", err)
			os.Exit(1)
		}
		if err := profile.Apply(opts, proc); err != nil {
			fmt.Printf("Error applying profile: %v\n", err)
			os.Exit(1)
		}
	}

	// Flags override the profile
	if err := applyFlags(opts, proc, *pluginFlag, *styleFlag, *outputFlag, *threadsFlag); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if opts.GetStyle() == savecore.StyleUnspecified {
		opts.SetStyle(savecore.StyleFull)
	}

	size, err := opts.GetCurrentSizeInBytes()
	if err != nil {
		fmt.Printf("Error estimating core size: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s\n", opts)
	fmt.Printf("Estimated size: %d bytes in %d regions\n", size, len(opts.GetMemoryRegionsToSave()))

	if *dryRunFlag {
		return
	}

	output, _ := opts.GetOutputFile()
	fmt.Printf("Saving core to %s...\n", output)
	if err := core_writer.Save(registry, opts); err != nil {
		fmt.Printf("Error saving core: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Core saved successfully.")
}

func newRegistry(compress bool) *plugin.Registry {
	writer := core_writer.NewBlobDirWriter()
	writer.Compress = compress

	registry := plugin.NewRegistry()
	err := registry.Register(plugin.Plugin{
		Name:        core_writer.BlobDirPluginName,
		Description: "directory of raw memory blobs with JSON metadata",
		Writer:      writer,
	})
	if err != nil {
		panic(err)
	}
	return registry
}

func applyFlags(opts *savecore.SaveCoreOptions, proc process.Process, pluginName, style, output, threads string) error {
	if pluginName != "" {
		if err := opts.SetPluginName(pluginName); err != nil {
			return err
		}
	}

	if style != "" {
		s, err := savecore.ParseStyle(style)
		if err != nil {
			return err
		}
		opts.SetStyle(s)
	}

	if output != "" {
		opts.SetOutputFile(output)
	}

	if threads == "" {
		return nil
	}

	all, err := proc.GetThreads()
	if err != nil {
		return fmt.Errorf("failed to list threads: %w", err)
	}

	for _, field := range strings.Split(threads, ",") {
		tid, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return fmt.Errorf("invalid thread id %q: %w", field, err)
		}

		var found process.Thread
		for _, t := range all {
			if t.GetTID() == process.ThreadID(tid) {
				found = t
				break
			}
		}
		if found == nil {
			return fmt.Errorf("%w: %d", process.ErrThreadNotFound, tid)
		}

		if err := opts.AddThread(found); err != nil {
			return err
		}
	}

	return nil
}
