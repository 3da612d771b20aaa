package savecore_test

import (
	"errors"
	"reflect"
	"testing"

	"gocore/process"
	"gocore/process_blob"
	"gocore/savecore"
)

// pluginNames is a fixed set of valid core writer names
type pluginNames map[string]bool

func (n pluginNames) IsValidPluginName(name string) bool {
	return n[name]
}

func newOptions() *savecore.SaveCoreOptions {
	return savecore.NewSaveCoreOptions(pluginNames{"minidump": true, "blobdir": true})
}

func loadProcess(t testing.TB, path string) *process_blob.ProcessDump {
	t.Helper()
	p, err := process_blob.LoadProcessYAML(path)
	if err != nil {
		t.Fatalf("load %s: %v", path, err)
	}
	return p
}

func basicProcess(t testing.TB) *process_blob.ProcessDump {
	return loadProcess(t, "testdata/basic_process.yaml")
}

func basicProcessDifferentPID(t testing.TB) *process_blob.ProcessDump {
	return loadProcess(t, "testdata/basic_process_different_pid.yaml")
}

func threadIDs(threads []process.Thread) []process.ThreadID {
	ids := make([]process.ThreadID, 0, len(threads))
	for _, th := range threads {
		ids = append(ids, th.GetTID())
	}
	return ids
}

func assertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertErrorIs(t testing.TB, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected error %v, got %v", target, err)
	}
}

func assertEqual(t testing.TB, got, want interface{}) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
