package main

import (
	"gocore/process"
	"gocore/process_linux"
)

func getProcess(pid process.ProcessID) (target, error) {
	proc, err := process_linux.NewWithPID(pid)
	if err != nil {
		return nil, err
	}
	return proc, nil
}

func findProcess(name string) (process.ProcessID, error) {
	return process_linux.OneByName(name)
}
