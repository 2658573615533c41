package httpserver

import (
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/kk-boop/simu/internal/simlog"
	"github.com/kk-boop/simu/protocol"
)

// directoryData is the data handed to templates/directory.html.
type directoryData struct {
	Path    string
	Entries protocol.Listing
}

// errorData is the data handed to templates/error.html.
type errorData struct {
	StatusCode int
	Error      string
}

// templateSet holds the directory-index and error-page templates, reloaded
// in place when the template directory changes on disk — the original
// implementation loaded its handlebars templates once at startup and never
// revisited them (main.rs's register_templates_directory); this expansion
// adds the reload.
type templateSet struct {
	dir string
	log *simlog.Logger

	mu      sync.RWMutex
	dirTmpl *template.Template
	errTmpl *template.Template

	watcher *fsnotify.Watcher
}

func newTemplateSet(dir string, log *simlog.Logger) (*templateSet, error) {
	if log == nil {
		log = simlog.NewDiscardLogger()
	}
	ts := &templateSet{dir: dir, log: log}
	if err := ts.load(); err != nil {
		return nil, err
	}
	if err := ts.startWatch(); err != nil {
		ts.log.Warn("template hot-reload disabled", simlog.KVErr(err))
	}
	return ts, nil
}

func (ts *templateSet) load() error {
	dirTmpl, err := template.ParseFiles(filepath.Join(ts.dir, "directory.html"))
	if err != nil {
		return fmt.Errorf("parse directory template: %w", err)
	}
	errTmpl, err := template.ParseFiles(filepath.Join(ts.dir, "error.html"))
	if err != nil {
		return fmt.Errorf("parse error template: %w", err)
	}
	ts.mu.Lock()
	ts.dirTmpl, ts.errTmpl = dirTmpl, errTmpl
	ts.mu.Unlock()
	return nil
}

func (ts *templateSet) startWatch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create template watcher: %w", err)
	}
	if err := w.Add(ts.dir); err != nil {
		w.Close()
		return fmt.Errorf("watch template directory: %w", err)
	}
	ts.watcher = w
	go ts.watchLoop()
	return nil
}

func (ts *templateSet) watchLoop() {
	for {
		select {
		case ev, ok := <-ts.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := ts.load(); err != nil {
				ts.log.Warn("failed to reload templates", simlog.KVErr(err))
			} else {
				ts.log.Info("reloaded templates", simlog.KV("path", ts.dir))
			}
		case err, ok := <-ts.watcher.Errors:
			if !ok {
				return
			}
			ts.log.Warn("template watcher error", simlog.KVErr(err))
		}
	}
}

func (ts *templateSet) Close() error {
	if ts.watcher == nil {
		return nil
	}
	return ts.watcher.Close()
}

func (ts *templateSet) renderDirectory(w io.Writer, data directoryData) error {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.dirTmpl.Execute(w, data)
}

func (ts *templateSet) renderError(w io.Writer, data errorData) error {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.errTmpl.Execute(w, data)
}
