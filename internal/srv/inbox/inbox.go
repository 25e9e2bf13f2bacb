// Package inbox feeds the store of a display with the image files dropped into a folder.
package inbox

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jypelle/papier/internal/srv/controller"
	"github.com/jypelle/papier/internal/srv/media"
	"github.com/sirupsen/logrus"
)

// Settle is how long a file must stay untouched before being imported.
const Settle = 500 * time.Millisecond

type Resolver interface {
	UpdateDisplayController(id string, fn func(c controller.Controller) error) error
}

// Watcher imports <image id>.<ext> files into the store of its display, then deletes them. An image with
// the same id is replaced.
type Watcher struct {
	displayId string
	folder    string
	resolver  Resolver
	settle    time.Duration
	log       *logrus.Entry

	lock    sync.Mutex
	watcher *fsnotify.Watcher
	pending map[string]time.Time
	askDone chan bool
	done    chan bool
}

func NewWatcher(displayId string, folder string, resolver Resolver, settle time.Duration) (*Watcher, error) {
	if err := os.MkdirAll(folder, 0770); err != nil {
		return nil, err
	}
	return &Watcher{
		displayId: displayId,
		folder:    folder,
		resolver:  resolver,
		settle:    settle,
		log:       logrus.WithField("display", displayId),
		pending:   make(map[string]time.Time),
	}, nil
}

func (w *Watcher) Folder() string {
	return w.folder
}

// Start imports the files already present, then watches the folder.
func (w *Watcher) Start() error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.folder); err != nil {
		_ = watcher.Close()
		return err
	}
	w.watcher = watcher
	w.askDone = make(chan bool)
	w.done = make(chan bool)

	entries, err := os.ReadDir(w.folder)
	if err != nil {
		w.log.Warnf("Unable to list inbox %s: %v", w.folder, err)
	}
	now := time.Now()
	for _, entry := range entries {
		if !entry.IsDir() {
			w.pending[filepath.Join(w.folder, entry.Name())] = now.Add(-w.settle)
		}
	}

	w.log.Infof("Watch inbox %s", w.folder)
	go w.loop(watcher, w.askDone, w.done)
	return nil
}

func (w *Watcher) Stop() {
	w.lock.Lock()
	watcher, askDone, done := w.watcher, w.askDone, w.done
	w.watcher = nil
	w.lock.Unlock()
	if watcher == nil {
		return
	}

	w.log.Infof("Stop watching inbox %s", w.folder)
	askDone <- true
	<-done
	if err := watcher.Close(); err != nil {
		w.log.Warnf("Unable to close inbox watcher: %v", err)
	}
}

func (w *Watcher) loop(watcher *fsnotify.Watcher, askDone chan bool, done chan bool) {
	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()
	w.importSettled()

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				close(done)
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.pending[ev.Name] = time.Now()
			} else if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				delete(w.pending, ev.Name)
			}
		case err, ok := <-watcher.Errors:
			if ok {
				w.log.Warnf("Inbox watcher error: %v", err)
			}
		case <-ticker.C:
			w.importSettled()
		case <-askDone:
			close(done)
			return
		}
	}
}

func (w *Watcher) importSettled() {
	limit := time.Now().Add(-w.settle)
	for filename, touched := range w.pending {
		if touched.After(limit) {
			continue
		}
		delete(w.pending, filename)
		if err := w.Import(filename); err != nil {
			w.log.Warnf("Unable to import %s: %v", filename, err)
		}
	}
}

// Import adds one file to the store and deletes it. Hidden files and unknown extensions are left alone.
func (w *Watcher) Import(filename string) error {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	imageId := strings.TrimSuffix(base, ext)
	if strings.HasPrefix(base, ".") || imageId == "" {
		return nil
	}
	imageType, err := media.TypeFromExtension(ext)
	if err != nil {
		w.log.Debugf("Ignore %s: %v", filename, err)
		return nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	img := media.New(imageId, imageType, data, nil)
	if _, err := img.Decode(); err != nil {
		return err
	}

	if err := w.resolver.UpdateDisplayController(w.displayId, func(c controller.Controller) error {
		return controller.ReplaceImage(c, img)
	}); err != nil {
		return err
	}
	w.log.Infof("Image %s imported from inbox", imageId)
	return os.Remove(filename)
}
