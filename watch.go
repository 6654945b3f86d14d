package osrevk

import (
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// ShaderWatcher flags the pipeline for a rebuild when one of the watched
// shader binaries changes on disk. The rebuild itself happens on the render
// goroutine at the start of the next frame.
type ShaderWatcher struct {
	w     *fsnotify.Watcher
	names map[string]bool
	dirty atomic.Bool
	done  chan struct{}
	log   *slog.Logger
}

// NewShaderWatcher watches dir for writes to any of names.
func NewShaderWatcher(dir string, names []string, log *slog.Logger) (*ShaderWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	s := &ShaderWatcher{
		w:     w,
		names: make(map[string]bool, len(names)),
		done:  make(chan struct{}),
		log:   log,
	}
	for _, n := range names {
		s.names[filepath.Base(n)] = true
	}
	go s.run()
	return s, nil
}

func (s *ShaderWatcher) run() {
	defer close(s.done)
	for {
		select {
		case ev, ok := <-s.w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if s.names[filepath.Base(ev.Name)] {
				s.log.Info("shader changed", "file", ev.Name, "op", ev.Op.String())
				s.dirty.Store(true)
			}
		case err, ok := <-s.w.Errors:
			if !ok {
				return
			}
			s.log.Warn("shader watcher", "err", err)
		}
	}
}

// Dirty reports whether a shader changed since the last call.
func (s *ShaderWatcher) Dirty() bool {
	return s.dirty.Swap(false)
}

// Close stops watching and waits for the event goroutine to exit.
func (s *ShaderWatcher) Close() error {
	err := s.w.Close()
	<-s.done
	return err
}
