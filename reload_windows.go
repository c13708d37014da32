//go:build windows

package main

// Windows doesn't support SIGUSR1, so we skip signal-based rebuilds
func setupReloadSignal(recompile func(string)) func() {
	return func() {}
}
