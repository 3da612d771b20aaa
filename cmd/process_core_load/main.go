package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gocore/hexdump"
	"gocore/process"
	"gocore/process_blob"
)

func main() {
	fromFlag := flag.String("from", "", "Directory containing the core")
	addrFlag := flag.String("addr", "", "Address to read from (hex)")
	sizeFlag := flag.Int("size", 256, "Number of bytes to hexdump")
	flag.Parse()

	if *fromFlag == "" {
		fmt.Println("Error: --from is required")
		flag.Usage()
		os.Exit(1)
	}

	dump := process_blob.NewProcessDump()
	if err := dump.Load(*fromFlag); err != nil {
		fmt.Printf("Error loading core from %s: %v\n", *fromFlag, err)
		os.Exit(1)
	}
	defer dump.Close()

	threads, err := dump.GetThreads()
	if err != nil {
		fmt.Printf("Error listing threads: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded core from %s\n", *fromFlag)
	fmt.Printf("Process Name: %s\n", dump.Name)
	fmt.Printf("PID: %d\n", dump.PID)
	fmt.Printf("Threads: %d\n", len(threads))
	for _, t := range threads {
		if sp, err := t.GetStackPointer(); err == nil {
			fmt.Printf("  %s sp=0x%x\n", t.GetTID().ToString(), sp)
		} else {
			fmt.Printf("  %s\n", t.GetTID().ToString())
		}
	}
	fmt.Printf("Memory Regions: %d\n", len(dump.MemoryMap))

	if *addrFlag == "" {
		fmt.Println("\nMemory Map:")
		for _, region := range dump.MemoryMap {
			saved := ""
			if _, ok := dump.Blobs[region.Address]; !ok {
				saved = " (not saved)"
			}
			fmt.Printf("  %016x - %016x (%s) %d bytes %s%s\n",
				region.Address, region.End(), region.Perms, region.Size, region.Path, saved)
		}
		return
	}

	addrVal, err := strconv.ParseUint(strings.TrimPrefix(*addrFlag, "0x"), 16, 64)
	if err != nil {
		fmt.Printf("Error parsing address: %v\n", err)
		os.Exit(1)
	}
	addr := process.ProcessMemoryAddress(addrVal)

	data, err := dump.ReadMemory(addr, process.ProcessMemorySize(*sizeFlag))
	if err != nil {
		fmt.Printf("Error reading memory at %s: %v\n", addr.ToString(), err)
		os.Exit(1)
	}

	fmt.Printf("\nHexdump at 0x%x (%d bytes):\n", addr, *sizeFlag)
	fmt.Print(hexdump.Dump(data, uint64(addr), dump.MemoryMap))
}
