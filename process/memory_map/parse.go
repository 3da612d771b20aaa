package memory_map

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// ParseMaps parses the /proc/[pid]/maps format
func ParseMaps(r io.Reader) ([]MemoryMapItem, error) {
	var memoryMap []MemoryMapItem
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if item, ok := parseMapsLine(scanner.Text()); ok {
			memoryMap = append(memoryMap, item)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return memoryMap, nil
}

// ParseSmaps parses the /proc/[pid]/smaps format. Each region carries its
// dirty byte count (Shared_Dirty + Private_Dirty).
func ParseSmaps(r io.Reader) ([]MemoryMapItem, error) {
	var memoryMap []MemoryMapItem
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		if item, ok := parseMapsLine(line); ok {
			memoryMap = append(memoryMap, item)
			continue
		}

		if len(memoryMap) == 0 {
			continue
		}
		current := &memoryMap[len(memoryMap)-1]

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		switch key {
		case "Shared_Dirty", "Private_Dirty":
			kb, err := parseKB(value)
			if err != nil {
				continue
			}
			current.DirtyBytes += kb * 1024
			current.HasDirtyInfo = true
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return memoryMap, nil
}

// parseMapsLine parses a region header such as
// "00400000-0040b000 r-xp 00000000 08:01 1234 /bin/cat"
func parseMapsLine(line string) (MemoryMapItem, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return MemoryMapItem{}, false
	}

	// Parse address range (e.g., "00400000-0040b000")
	addrRange := strings.Split(fields[0], "-")
	if len(addrRange) != 2 {
		return MemoryMapItem{}, false
	}

	startAddr, err := strconv.ParseUint(addrRange[0], 16, 64)
	if err != nil {
		return MemoryMapItem{}, false
	}

	endAddr, err := strconv.ParseUint(addrRange[1], 16, 64)
	if err != nil || endAddr < startAddr {
		return MemoryMapItem{}, false
	}

	item := MemoryMapItem{
		Address: startAddr,
		Size:    uint(endAddr - startAddr),
		Perms:   fields[1],
	}
	if len(fields) >= 6 {
		item.Path = strings.Join(fields[5:], " ")
	}

	return item, true
}

func parseKB(value string) (uint64, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimSuffix(value, "kB")
	return strconv.ParseUint(strings.TrimSpace(value), 10, 64)
}
