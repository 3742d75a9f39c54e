package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"diagcheck/internal/prof"
)

// setupProfiling inspects the command's profiling flags and enables the
// corresponding profilers. It returns a cleanup function that is safe to call
// multiple times.
func setupProfiling(cmd *cobra.Command) (func(), error) {
	cpuProfile, err := cmd.Flags().GetString("profile-cpu")
	if err != nil {
		return nil, fmt.Errorf("failed to get profile-cpu flag: %w", err)
	}
	memProfile, err := cmd.Flags().GetString("profile-mem")
	if err != nil {
		return nil, fmt.Errorf("failed to get profile-mem flag: %w", err)
	}
	tracePath, err := cmd.Flags().GetString("profile-trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get profile-trace flag: %w", err)
	}

	stopCPU := func() {}
	stopTrace := func() {}
	writeMem := func() {}

	if cpuProfile != "" {
		if err := prof.StartCPU(cpuProfile); err != nil {
			return nil, fmt.Errorf("failed to start cpu profile: %w", err)
		}
		stopCPU = prof.StopCPU
	}
	if tracePath != "" {
		if err := prof.StartTrace(tracePath); err != nil {
			// ensure cpu profile is stopped on error
			stopCPU()
			return nil, fmt.Errorf("failed to start trace: %w", err)
		}
		stopTrace = prof.StopTrace
	}
	if memProfile != "" {
		writeMem = func() {
			if err := prof.WriteMem(memProfile); err != nil {
				fmt.Fprintf(os.Stderr, "failed to write heap profile: %v\n", err)
			}
		}
	}

	cleaned := false
	cleanup := func() {
		if cleaned {
			return
		}
		cleaned = true
		stopTrace()
		stopCPU()
		writeMem()
	}

	return cleanup, nil
}

// registerProfileFlags adds the profiling triple to a command that does real
// work. Kept out of the root so that scaffolding commands stay lean.
func registerProfileFlags(cmd *cobra.Command) {
	cmd.Flags().String("profile-cpu", "", "write a CPU profile to the given path")
	cmd.Flags().String("profile-mem", "", "write a heap profile on exit to the given path")
	cmd.Flags().String("profile-trace", "", "write a Go runtime trace to the given path")
}
