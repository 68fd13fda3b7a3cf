package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "motibot/pkg/logx"
)

// debounceDelay coalesces the burst of fs events an editor save produces,
// so partial writes are not parsed.
const debounceDelay = 250 * time.Millisecond

// Watch re-parses the config file whenever it changes on disk and delivers
// valid snapshots on the returned channel. Invalid or unparsable content is
// logged and skipped; the previous config stays in effect.
//
// The goroutine exits when ctx is cancelled. Watching the directory (not the
// file) survives editors that replace the file via rename.
func Watch(ctx context.Context, path string, log logx.Logger) (<-chan *Config, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	file := filepath.Base(path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}

	out := make(chan *Config, 1)

	// The watcher goroutine below is the only sender on (and closer of) out.
	// The debounce timer merely signals kick, which is never closed, so a
	// timer firing during shutdown cannot hit a closed channel.
	kick := make(chan struct{}, 1)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	scheduleReload := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounceDelay, func() {
			select {
			case kick <- struct{}{}:
			default:
			}
		})
	}

	go func() {
		defer w.Close()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-kick:
				cfg, err := Load(path)
				if err != nil {
					log.Warn("config reload rejected", logx.String("path", path), logx.Err(err))
					continue
				}
				select {
				case out <- cfg:
				case <-ctx.Done():
					return
				}
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != file {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					log.Debug("config change detected", logx.String("path", path))
					scheduleReload()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("config watch error", logx.Err(err))
			}
		}
	}()

	return out, nil
}
