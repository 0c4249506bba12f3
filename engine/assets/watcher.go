package assets

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/anima-toon/engine/core"
	"github.com/spaghettifunk/anima-toon/engine/renderer/metadata"
)

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// Watcher reports changes to configuration files and shader binaries. Bursts
// of writes to the same files are coalesced into one event per file once the
// files have been quiet for the debounce interval.
type Watcher struct {
	assets map[string]AssetInfo
	dirs   map[string]bool

	mutex sync.RWMutex

	debounce time.Duration
	done     chan struct{}
	stopped  sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
	events   chan AssetInfo
	errors   chan error
}

func NewWatcher(debounce time.Duration) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		assets:   make(map[string]AssetInfo),
		dirs:     make(map[string]bool),
		debounce: debounce,
		fsnotify: fsWatch,
		events:   make(chan AssetInfo, 16),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}
	w.stopped.Add(1)
	go w.start()
	return w, nil
}

// Add watches a file or every known asset inside a directory. Files are
// watched through their parent directory so editors that save by renaming
// still produce events.
func (w *Watcher) Add(path string) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.isClosed {
		return errors.New("watcher already closed")
	}
	path = filepath.Clean(path)
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		w.dirs[path] = true
		return w.fsnotify.Add(path)
	}
	w.assets[path] = AssetInfo{
		Path:       path,
		Type:       determineAssetType(path),
		LastLoaded: time.Now(),
	}
	return w.fsnotify.Add(filepath.Dir(path))
}

// Events delivers one AssetInfo per changed file after debouncing.
func (w *Watcher) Events() <-chan AssetInfo {
	return w.events
}

func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops watching and closes the event channel.
func (w *Watcher) Close() error {
	w.mutex.Lock()
	if w.isClosed {
		w.mutex.Unlock()
		return nil
	}
	w.isClosed = true
	w.mutex.Unlock()

	close(w.done)
	w.stopped.Wait()
	return nil
}

func (w *Watcher) start() {
	defer w.stopped.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	pending := map[string]AssetInfo{}

	for {
		select {

		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&fsnotify.Remove != 0 {
				w.removeAsset(e.Name)
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			info, tracked := w.handleFileEvent(e.Name)
			if !tracked {
				continue
			}
			pending[info.Path] = info
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			for path, info := range pending {
				select {
				case w.events <- info:
				case <-w.done:
					w.shutdown()
					return
				}
				delete(pending, path)
			}

		case e, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(e.Error())
			select {
			case w.errors <- e:
			default:
			}

		case <-w.done:
			w.shutdown()
			return
		}
	}
}

func (w *Watcher) shutdown() {
	w.fsnotify.Close()
	close(w.events)
	close(w.errors)
}

// handleFileEvent refreshes the record of a changed file and reports whether
// the file is watched.
func (w *Watcher) handleFileEvent(path string) (AssetInfo, bool) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	path = filepath.Clean(path)
	info, exists := w.assets[path]
	if !exists {
		if !w.dirs[filepath.Dir(path)] {
			return AssetInfo{}, false
		}
		assetType := determineAssetType(path)
		if assetType == metadata.ResourceTypeNone {
			return AssetInfo{}, false
		}
		info = AssetInfo{Path: path, Type: assetType}
	}
	info.LastLoaded = time.Now()
	w.assets[path] = info
	return info, true
}

// Files inside watched directories are forgotten once deleted; explicitly
// added files stay registered so a later re-create is still reported.
func (w *Watcher) removeAsset(path string) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	path = filepath.Clean(path)
	if w.dirs[filepath.Dir(path)] {
		delete(w.assets, path)
	}
}

func determineAssetType(path string) metadata.ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return metadata.ResourceTypeBinary
	case ".toml":
		return metadata.ResourceTypeShadingConfig
	default:
		return metadata.ResourceTypeNone
	}
}
