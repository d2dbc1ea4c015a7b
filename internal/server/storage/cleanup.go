package storage

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// A replace that crashes between writing the new file and deleting the
// old one, or whose delete fails, leaves an orphan on disk. The cleanup
// service periodically sweeps the managed areas and removes files no
// setting references anymore.

// ReferencedFunc reports the set of absolute file paths currently
// referenced by the settings slots.
type ReferencedFunc func(ctx context.Context) (map[string]bool, error)

// CleanupService periodically removes orphaned files from the managed
// storage areas.
type CleanupService struct {
	areas      []*ManagedDir
	referenced ReferencedFunc
	interval   time.Duration
	grace      time.Duration
	done       chan struct{}
}

// NewCleanupService creates a new cleanup service over the given areas.
func NewCleanupService(areas []*ManagedDir, referenced ReferencedFunc, interval time.Duration) *CleanupService {
	return &CleanupService{
		areas:      areas,
		referenced: referenced,
		interval:   interval,
		grace:      10 * time.Minute,
		done:       make(chan struct{}),
	}
}

// Start begins the cleanup loop in a background goroutine.
func (cs *CleanupService) Start(ctx context.Context) {
	slog.Info("cleanup service started", "interval", cs.interval)

	go func() {
		ticker := time.NewTicker(cs.interval)
		defer ticker.Stop()

		// Run once immediately on start
		cs.runCleanup(ctx)

		for {
			select {
			case <-ticker.C:
				cs.runCleanup(ctx)
			case <-ctx.Done():
				slog.Info("cleanup service stopping")
				close(cs.done)
				return
			}
		}
	}()
}

// Wait blocks until the cleanup service has fully stopped.
func (cs *CleanupService) Wait() {
	<-cs.done
}

func (cs *CleanupService) runCleanup(ctx context.Context) {
	live, err := cs.referenced(ctx)
	if err != nil {
		slog.Error("failed to resolve referenced assets", "error", err)
		return
	}

	var removed, failed int
	for _, area := range cs.areas {
		names, err := area.List()
		if err != nil {
			slog.Error("failed to list managed area", "error", err)
			continue
		}
		for _, name := range names {
			path := area.PathFor(name)
			if live[path] {
				continue
			}
			// Grace period so an in-flight replace is never swept
			// between writing the file and committing the setting.
			info, err := os.Stat(path)
			if err != nil || time.Since(info.ModTime()) < cs.grace {
				continue
			}
			if err := area.Delete(path); err != nil {
				slog.Error("failed to delete orphaned file", "path", path, "error", err)
				failed++
				continue
			}
			removed++
			slog.Info("removed orphaned file", "path", path)
		}
	}

	if removed > 0 || failed > 0 {
		slog.Info("cleanup cycle complete", "removed", removed, "failed", failed)
	}
}
