package verify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce collapses the burst of events an editor save produces.
const watchDebounce = 150 * time.Millisecond

// Watch runs the corpus once, then again whenever a corpus file or sidecar
// under paths changes, passing each report to emit. It returns when ctx is
// done.
func (v *Verifier) Watch(ctx context.Context, paths []string, emit func(*Report)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	files, err := CollectFiles(paths)
	if err != nil {
		return err
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			dirs[p] = true
		}
	}
	for _, f := range files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	rerun := func() {
		report, err := v.Run(ctx, paths)
		if err != nil {
			if ctx.Err() == nil {
				v.logger.Warn("verify run failed", "error", err)
			}
			return
		}
		emit(report)
	}
	rerun()

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !IsCorpusFile(ev.Name) && !strings.HasSuffix(ev.Name, SidecarSuffix) {
				continue
			}
			v.logger.Debug("corpus changed", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			v.logger.Warn("watch error", "error", err)
		case <-timer.C:
			rerun()
		}
	}
}
