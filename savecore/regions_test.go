package savecore_test

import (
	"testing"

	"gocore/process/memory_map"
	"gocore/savecore"
)

func regionBases(regions []memory_map.MemoryMapItem) []uint64 {
	bases := make([]uint64, 0, len(regions))
	for _, r := range regions {
		bases = append(bases, r.Address)
	}
	return bases
}

func TestGetMemoryRegionsToSave(t *testing.T) {
	options := newOptions()

	// Neither style nor process
	assertEqual(t, len(options.GetMemoryRegionsToSave()), 0)

	// No style
	proc := basicProcess(t)
	options.SetProcess(proc)
	assertEqual(t, len(options.GetMemoryRegionsToSave()), 0)
	options.Clear()

	// No process
	options.SetStyle(savecore.StyleCustomOnly)
	assertEqual(t, len(options.GetMemoryRegionsToSave()), 0)
	options.Clear()

	options.SetStyle(savecore.StyleCustomOnly)
	options.SetProcess(proc)
	region, err := proc.GetMemoryRegionInfo(0x1000)
	assertNoError(t, err)
	assertNoError(t, options.AddMemoryRegionToSave(region))

	regions := options.GetMemoryRegionsToSave()
	assertEqual(t, len(regions), 1)
	assertEqual(t, regions[0].Address, region.Address)
	assertEqual(t, regions[0].End(), region.End())
}

func TestCustomRegionsResolvePermissions(t *testing.T) {
	options := newOptions()
	options.SetProcess(basicProcess(t))
	options.SetStyle(savecore.StyleCustomOnly)

	// Partially mapped bounds are kept as given
	assertNoError(t, options.AddMemoryRegionToSave(memory_map.NewRegion(0x1000, 0x1080, "")))
	assertNoError(t, options.AddMemoryRegionToSave(memory_map.NewRegion(0x5000, 0x5100, "r--p")))

	regions := options.GetMemoryRegionsToSave()
	assertEqual(t, len(regions), 2)
	assertEqual(t, regions[0].End(), uint64(0x1080))
	assertEqual(t, regions[0].Perms, "r--p")
	// Unmapped in the process: supplied permissions stay
	assertEqual(t, regions[1].Perms, "r--p")
}

func TestStyleDerivedRegions(t *testing.T) {
	cases := []struct {
		name      string
		fixture   string
		style     savecore.Style
		threads   []int
		wantBases []uint64
		wantSize  uint64
	}{
		{
			name:      "full keeps readable regions",
			fixture:   "testdata/basic_process.yaml",
			style:     savecore.StyleFull,
			wantBases: []uint64{0x1000, 0x2000, 0x7000, 0x9000},
			wantSize:  0x3100,
		},
		{
			name:      "dirty pages without dirty info uses writable regions",
			fixture:   "testdata/basic_process.yaml",
			style:     savecore.StyleDirtyPages,
			wantBases: []uint64{0x2000, 0x7000, 0x9000},
			wantSize:  0x3000,
		},
		{
			name:      "dirty pages with dirty info",
			fixture:   "testdata/smaps_process.yaml",
			style:     savecore.StyleDirtyPages,
			wantBases: []uint64{0x2000, 0x5000},
			wantSize:  0x2000,
		},
		{
			name:      "stack only with every thread",
			fixture:   "testdata/basic_process.yaml",
			style:     savecore.StyleStackOnly,
			wantBases: []uint64{0x7000, 0x9000},
			wantSize:  0x2000,
		},
		{
			name:      "stack only with a selected thread",
			fixture:   "testdata/basic_process.yaml",
			style:     savecore.StyleStackOnly,
			threads:   []int{1},
			wantBases: []uint64{0x9000},
			wantSize:  0x1000,
		},
		{
			name:      "stack only falls back to labelled stacks",
			fixture:   "testdata/basic_process.yaml",
			style:     savecore.StyleStackOnly,
			threads:   []int{2},
			wantBases: []uint64{0x7000},
			wantSize:  0x1000,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			proc := loadProcess(t, c.fixture)
			options := newOptions()
			options.SetProcess(proc)
			options.SetStyle(c.style)
			for _, i := range c.threads {
				assertNoError(t, options.AddThread(proc.ThreadAtIndex(i)))
			}

			// Explicit regions never count outside custom-only
			assertNoError(t, options.AddMemoryRegionToSave(memory_map.NewRegion(0x100000, 0x200000, "rw-p")))

			assertEqual(t, regionBases(options.GetMemoryRegionsToSave()), c.wantBases)

			total, err := options.GetCurrentSizeInBytes()
			assertNoError(t, err)
			assertEqual(t, total, c.wantSize)
		})
	}
}

func TestStackOnlyWithoutStacks(t *testing.T) {
	proc := loadProcess(t, "testdata/smaps_process.yaml")
	options := newOptions()
	options.SetProcess(proc)
	options.SetStyle(savecore.StyleStackOnly)

	// The only thread has no stack pointer, the [stack] region is used
	assertEqual(t, regionBases(options.GetMemoryRegionsToSave()), []uint64{0x5000})
}

func TestParseStyle(t *testing.T) {
	cases := map[string]savecore.Style{
		"":            savecore.StyleUnspecified,
		"full":        savecore.StyleFull,
		"Dirty_Pages": savecore.StyleDirtyPages,
		"stack-only":  savecore.StyleStackOnly,
		"CUSTOM-ONLY": savecore.StyleCustomOnly,
	}
	for name, want := range cases {
		got, err := savecore.ParseStyle(name)
		assertNoError(t, err)
		assertEqual(t, got, want)
	}

	if _, err := savecore.ParseStyle("everything"); err == nil {
		t.Errorf("expected unknown style to fail")
	}
	assertEqual(t, savecore.Style(42).String(), "style(42)")
}
