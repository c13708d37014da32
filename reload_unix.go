// Completion: 100% - Platform-specific module complete
//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// setupReloadSignal rebuilds on SIGUSR1. The returned function stops
// listening.
func setupReloadSignal(recompile func(string)) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGUSR1)
	go func() {
		for range sigChan {
			recompile("Manual rebuild triggered (SIGUSR1)")
		}
	}()
	return func() {
		signal.Stop(sigChan)
		close(sigChan)
	}
}
