package signalhandler

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

// SetupContext returns a context that is canceled on SIGINT or SIGTERM so
// long-running work (backfill, scans) can stop between items.
func SetupContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
		// A second signal forces an immediate exit.
		<-sigChan
		os.Exit(1)
	}()

	return ctx
}

// GetOptimalProcs returns the number of worker goroutines to use. Frame
// extraction spawns one external process per attempt, so leaving a share of
// the CPUs free keeps the machine responsive.
func GetOptimalProcs() int {
	maxProcs := (runtime.NumCPU() * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}
	return maxProcs
}
