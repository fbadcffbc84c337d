package snapshot

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/radoff/radoff"
)

const DefaultInterval = 30 * time.Second

// Coordinator serves device data from a snapshot file, reloading it on an
// interval and whenever the file changes.
type Coordinator struct {
	Path          string
	Interval      time.Duration
	GenerateIndex bool

	mu        sync.RWMutex
	devices   []radoff.Device
	listeners map[int]func()
	nextID    int
}

// NewCoordinator performs the first refresh so the coordinator never serves
// an empty snapshot for a readable file.
func NewCoordinator(path string, interval time.Duration, generateIndex bool) (*Coordinator, error) {
	c := &Coordinator{
		Path:          path,
		Interval:      interval,
		GenerateIndex: generateIndex,
		listeners:     map[int]func(){},
	}
	if err := c.Refresh(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Coordinator) Snapshot() radoff.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return radoff.Snapshot{Devices: c.devices, GenerateIndex: c.GenerateIndex}
}

func (c *Coordinator) DeviceByID(deviceType, deviceID string) (radoff.Device, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.devices {
		if d.DeviceType == deviceType && d.DeviceID == deviceID {
			return d, true
		}
	}
	return radoff.Device{}, false
}

func (c *Coordinator) Subscribe(fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listeners == nil {
		c.listeners = map[int]func(){}
	}
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Refresh reloads the file and notifies subscribers. On failure the previous
// snapshot stays in place.
func (c *Coordinator) Refresh() error {
	devices, err := Load(c.Path)
	if err != nil {
		return errors.Wrapf(err, "refresh of %s failed", c.Path)
	}

	c.mu.Lock()
	c.devices = devices
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	log.Debugf("refreshed %d devices from %s", len(devices), c.Path)
	for _, fn := range fns {
		fn()
	}
	return nil
}

// Run refreshes on every tick of Interval and on writes to Path until ctx is
// cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	// watch the directory: atomic saves rename a new inode over the file,
	// which a watch on the file itself would lose
	target := filepath.Clean(c.Path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return errors.Wrapf(err, "failed to watch %s", c.Path)
	}

	interval := c.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			c.refreshAndLog()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			c.refreshAndLog()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorf("snapshot watcher error: %s", err)
		}
	}
}

func (c *Coordinator) refreshAndLog() {
	if err := c.Refresh(); err != nil {
		log.Errorf("%s, keeping previous snapshot", err)
	}
}
