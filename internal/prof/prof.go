// Package prof wraps runtime/pprof and runtime/trace for the CLI's
// profiling flags. One profile of each kind at a time; starting a second
// one is an error, not a silent file swap.
package prof

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

var (
	cpuFile   *os.File
	traceFile *os.File
)

// StartCPU begins CPU sampling into path. Pair with StopCPU.
func StartCPU(path string) error {
	if cpuFile != nil {
		return fmt.Errorf("cpu profile already active (%s)", cpuFile.Name())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return err
	}
	cpuFile = f
	return nil
}

// StopCPU flushes and closes the active CPU profile. Safe to call when
// nothing is running.
func StopCPU() {
	if cpuFile == nil {
		return
	}
	pprof.StopCPUProfile()
	_ = cpuFile.Close()
	cpuFile = nil
}

// WriteMem forces a GC and snapshots the heap profile to path.
func WriteMem(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// StartTrace begins a runtime execution trace into path. Pair with
// StopTrace. Это трасса планировщика Go, не событийная трасса чекера.
func StartTrace(path string) error {
	if traceFile != nil {
		return fmt.Errorf("runtime trace already active (%s)", traceFile.Name())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := trace.Start(f); err != nil {
		_ = f.Close()
		return err
	}
	traceFile = f
	return nil
}

// StopTrace ends the active runtime trace. Safe to call when nothing is
// running.
func StopTrace() {
	if traceFile == nil {
		return
	}
	trace.Stop()
	_ = traceFile.Close()
	traceFile = nil
}
