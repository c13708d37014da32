// Completion: 100% - Module complete
package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"
)

const (
	watchDebounce = 500 * time.Millisecond
	pollInterval  = 100 * time.Millisecond
)

// watch builds sourceFile into outputFile, then rebuilds it on every change
// until ctx is cancelled. Failed builds are reported and watching goes on.
func (s *session) watch(ctx context.Context, sourceFile, outputFile string) error {
	absPath, err := filepath.Abs(sourceFile)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	builds := 0
	rebuild := func(trigger string) {
		mu.Lock()
		defer mu.Unlock()
		builds++
		fmt.Fprintf(s.stderr, "[%s] %s\n", time.Now().Format("15:04:05"), trigger)
		if err := s.build(absPath, outputFile, s.cfg.Listing); err != nil {
			if !reported(err) {
				fmt.Fprintf(s.stderr, "Build failed: %v\n", err)
			}
			return
		}
		fmt.Fprintf(s.stderr, "Built %s\n", outputFile)
	}

	fmt.Fprintf(s.stderr, "Watching %s\n", absPath)
	rebuild("Initial build")

	stopSignal := setupReloadSignal(rebuild)
	defer stopSignal()

	watcher, err := NewFileWatcher(func(path string) {
		rebuild(fmt.Sprintf("File changed: %s", filepath.Base(path)))
	})
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.AddFile(absPath); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch file: %w", err)
	}

	done := make(chan struct{})
	go func() {
		watcher.Watch()
		close(done)
	}()

	<-ctx.Done()
	watcher.Close()
	<-done

	mu.Lock()
	s.logf("%d build(s)\n", builds)
	mu.Unlock()
	return nil
}
