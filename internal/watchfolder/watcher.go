// Package watchfolder adapts the teacher's internal/core/watcher (fsnotify
// debounced directory watch for new .mkv files) into the optional
// drop-folder ingestion path of SPEC_FULL.md §4.7a: a configured directory is
// watched for new .pptx files, and each one is handed to a submission
// callback rather than a muxing pipeline. The debounce and
// still-being-written checks are unchanged in shape since they solve the
// same problem (a file appearing mid-copy) regardless of extension.
package watchfolder

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a directory for new .pptx files.
type Watcher struct {
	watcher     *fsnotify.Watcher
	watchPath   string
	debounceMap map[string]*time.Timer
	mu          sync.Mutex

	// OnNewFile is invoked once a detected file is confirmed no longer
	// being written to.
	OnNewFile func(path string)
	// OnError is invoked for fsnotify errors surfaced on the watch.
	OnError func(error)

	stop chan struct{}
}

// New creates a Watcher rooted at watchPath. Start must be called to begin
// receiving events.
func New(watchPath string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		watchPath:   watchPath,
		debounceMap: make(map[string]*time.Timer),
		stop:        make(chan struct{}),
	}, nil
}

// Start begins monitoring the directory in a background goroutine.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.watchPath); err != nil {
		return err
	}
	go w.eventLoop()
	return nil
}

// Stop halts monitoring and releases the underlying fsnotify watch.
func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.OnError != nil {
				w.OnError(err)
			}
		}
	}
}

// handleEvent debounces Create/Write bursts (editors and network copies
// frequently fire several events for one logical file write) before treating
// a file as arrived.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != fsnotify.Create && event.Op&fsnotify.Write != fsnotify.Write {
		return
	}
	if !strings.HasSuffix(strings.ToLower(event.Name), ".pptx") {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, exists := w.debounceMap[event.Name]; exists {
		timer.Stop()
	}
	w.debounceMap[event.Name] = time.AfterFunc(3*time.Second, func() {
		w.processFile(event.Name)
	})
}

func (w *Watcher) processFile(path string) {
	w.mu.Lock()
	delete(w.debounceMap, path)
	w.mu.Unlock()

	if !isFileReady(path) {
		time.AfterFunc(1*time.Second, func() { w.processFile(path) })
		return
	}
	if w.OnNewFile != nil {
		w.OnNewFile(path)
	}
}

// isFileReady reports whether path looks like a complete file rather than
// one still being written: non-empty, readable, and stable in size across a
// short interval.
func isFileReady(path string) bool {
	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || info.Size() == 0 {
		return false
	}

	buf := make([]byte, 1)
	if _, err := file.Read(buf); err != nil {
		return false
	}

	time.Sleep(500 * time.Millisecond)
	info2, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() == info2.Size()
}
