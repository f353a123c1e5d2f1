package engine

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// settle is how long a file must stay quiet before it is searched again.
const settle = 100 * time.Millisecond

// Report receives the outcome of each search triggered by a change.
type Report func(res *FileResult, err error)

// Watch searches Go and Gno files under dirs each time they are written,
// until ctx is done. Bursts of writes to one file trigger a single search.
func (e *Engine) Watch(ctx context.Context, dirs []string, report Report) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if path != dir && e.Excluded(path) {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		})
		if err != nil {
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !hasDesiredExtension(event.Name) || e.Excluded(event.Name) {
				continue
			}
			pending[event.Name] = time.Now()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("Watcher error", zap.Error(err))
		case now := <-ticker.C:
			for name, at := range pending {
				if now.Sub(at) < settle {
					continue
				}
				delete(pending, name)
				res, err := e.Run(ctx, name)
				if err != nil {
					e.logger.Error("Error processing file", zap.String("file", name), zap.Error(err))
				}
				report(res, err)
			}
		}
	}
}
