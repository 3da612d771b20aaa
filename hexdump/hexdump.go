package hexdump

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"gocore/process/memory_map"
)

// BytesPerLine is the number of bytes shown on each line
const BytesPerLine = 16

// Dump formats data as a hex dump whose offset column starts at addr.
//
//	0000000000001000  aa aa aa aa aa aa aa aa | aa aa aa aa aa aa aa aa | ........ ........ | 0x7f00
//
// When mm is not empty, the 8-byte words at the start and middle of a line
// that point into a mapped region are listed after the ascii column.
func Dump(data []byte, addr uint64, mm []memory_map.MemoryMapItem) string {
	var sb strings.Builder
	DumpToWriter(&sb, data, addr, mm)
	return sb.String()
}

// DumpToWriter writes the hex dump of data to w
func DumpToWriter(w io.Writer, data []byte, addr uint64, mm []memory_map.MemoryMapItem) {
	for offset := 0; offset < len(data); offset += BytesPerLine {
		end := offset + BytesPerLine
		if end > len(data) {
			end = len(data)
		}
		formatLine(w, data[offset:end], addr+uint64(offset), mm)
	}
}

func formatLine(w io.Writer, line []byte, addr uint64, mm []memory_map.MemoryMapItem) {
	fmt.Fprintf(w, "%016x  ", addr)

	half := BytesPerLine / 2
	for i := 0; i < BytesPerLine; i++ {
		if i == half {
			fmt.Fprint(w, "| ")
		}
		if i < len(line) {
			fmt.Fprintf(w, "%02x ", line[i])
		} else {
			fmt.Fprint(w, "   ")
		}
	}

	fmt.Fprint(w, "| ")
	for i, b := range line {
		if i == half {
			fmt.Fprint(w, " ")
		}
		fmt.Fprint(w, printable(b))
	}

	var pointers []string
	for _, at := range []int{0, half} {
		if at+8 > len(line) {
			break
		}
		ptr := binary.LittleEndian.Uint64(line[at : at+8])
		if ptr != 0 && memory_map.FindRegion(ptr, mm) != nil {
			pointers = append(pointers, fmt.Sprintf("0x%x", ptr))
		}
	}
	if len(pointers) > 0 {
		fmt.Fprint(w, " | ", strings.Join(pointers, " "))
	}

	fmt.Fprintln(w)
}

func printable(b byte) string {
	if b < 0x20 || b > 0x7e {
		return "."
	}
	return string(rune(b))
}
