package controller

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jypelle/papier/internal/srv/device"
	"github.com/jypelle/papier/internal/srv/event"
	"github.com/jypelle/papier/internal/srv/media"
	"github.com/jypelle/papier/internal/srv/store"
	"github.com/jypelle/papier/internal/srv/transform"
)

// Cyclable controllers rotate through the images of their store.
type Cyclable interface {
	Controller
	DisplayNext() (*media.Image, error)
}

// CyclingController rotates through a FIFO queue of image ids. The queue is seeded from the store and
// newly added images are appended, so the rotation position survives additions. Removing the current
// image moves on to the next one instead of blanking the display.
type CyclingController struct {
	*DisplayController

	queueLock sync.Mutex
	queue     []string

	storeAddListener event.Listener[store.Event]
}

var _ Cyclable = (*CyclingController)(nil)

func NewCyclingController(id string, driver *device.ListenableDriver, s *store.ListenableStore, sequence *transform.Sequence) (*CyclingController, error) {
	base, err := NewDisplayController(id, driver, s, sequence)
	if err != nil {
		return nil, err
	}
	images, err := s.List()
	if err != nil {
		base.Close()
		return nil, err
	}

	c := &CyclingController{DisplayController: base}
	for _, img := range images {
		c.queue = append(c.queue, img.Id())
	}
	base.currentRemoved = func() error {
		_, err := c.displayNext()
		return err
	}

	c.storeAddListener = event.ListenerFunc(c.onStoreAdd)
	if err := s.AddListener(c.storeAddListener, store.AddEvent); err != nil {
		base.Close()
		return nil, err
	}
	return c, nil
}

func (c *CyclingController) Type() string {
	return "cycling"
}

func (c *CyclingController) Close() {
	c.store.RemoveListener(c.storeAddListener, store.AddEvent)
	c.DisplayController.Close()
}

// Queue returns a copy of the pending rotation, head first.
func (c *CyclingController) Queue() []string {
	c.queueLock.Lock()
	defer c.queueLock.Unlock()
	return slices.Clone(c.queue)
}

func (c *CyclingController) onStoreAdd(ev store.Event) error {
	c.queueLock.Lock()
	defer c.queueLock.Unlock()
	if !slices.Contains(c.queue, ev.ImageId) {
		c.queue = append(c.queue, ev.ImageId)
	}
	return nil
}

func (c *CyclingController) pop() (string, bool) {
	c.queueLock.Lock()
	defer c.queueLock.Unlock()
	if len(c.queue) == 0 {
		return "", false
	}
	id := c.queue[0]
	c.queue = c.queue[1:]
	return id, true
}

// requeue appends id at the tail and returns the queue length.
func (c *CyclingController) requeue(id string) int {
	c.queueLock.Lock()
	defer c.queueLock.Unlock()
	if !slices.Contains(c.queue, id) {
		c.queue = append(c.queue, id)
	}
	return len(c.queue)
}

// DisplayNext shows the next queued image and returns it. Stale ids are dropped on the way. When the
// queue runs out the display is cleared and nil is returned.
func (c *CyclingController) DisplayNext() (*media.Image, error) {
	c.opLock.Lock()
	defer c.opLock.Unlock()
	return c.displayNext()
}

func (c *CyclingController) displayNext() (*media.Image, error) {
	for {
		id, ok := c.pop()
		if !ok {
			c.log.Infof("Nothing left to cycle through")
			return nil, c.driver.Clear()
		}

		img, err := c.store.Get(id)
		if err != nil {
			c.requeue(id)
			return nil, err
		}
		if img == nil {
			c.log.Debugf("Drop stale image %s from rotation", id)
			continue
		}

		length := c.requeue(id)
		if img.Equal(c.CurrentImage()) {
			if length == 1 {
				return img, nil
			}
			continue
		}

		if err := c.display(id); err != nil {
			return nil, err
		}
		return img, nil
	}
}

// AutoCyclingController calls DisplayNext at a fixed interval once started.
type AutoCyclingController struct {
	*CyclingController

	interval time.Duration

	lock    sync.Mutex
	running bool
	askDone chan bool
	done    chan bool
}

func NewAutoCyclingController(id string, driver *device.ListenableDriver, s *store.ListenableStore, sequence *transform.Sequence, interval time.Duration) (*AutoCyclingController, error) {
	cycling, err := NewCyclingController(id, driver, s, sequence)
	if err != nil {
		return nil, err
	}
	return &AutoCyclingController{
		CyclingController: cycling,
		interval:          interval,
	}, nil
}

func (c *AutoCyclingController) Type() string {
	return "auto_cycling"
}

func (c *AutoCyclingController) Interval() time.Duration {
	return c.interval
}

// Start is a no-op when already running.
func (c *AutoCyclingController) Start() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.running {
		return
	}
	c.log.Infof("Start cycling every %v", c.interval)
	c.running = true
	c.askDone = make(chan bool)
	c.done = make(chan bool)

	go func(askDone <-chan bool, done chan<- bool) {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for loop := true; loop; {
			select {
			case <-askDone:
				loop = false
			case <-ticker.C:
				if err := c.tick(); err != nil {
					c.log.Warnf("Unable to display next image: %v", err)
				}
			}
		}
		done <- true
	}(c.askDone, c.done)
}

// tick turns a panic of the display chain into an error so the cycling goes on.
func (c *AutoCyclingController) tick() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("display next panicked: %v", rec)
		}
	}()
	_, err = c.DisplayNext()
	return err
}

// Stop returns once no further DisplayNext can run. It is a no-op when not running.
func (c *AutoCyclingController) Stop() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.running {
		return
	}
	c.log.Infof("Stop cycling")
	c.askDone <- true
	<-c.done
	c.running = false
}

func (c *AutoCyclingController) Running() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.running
}

func (c *AutoCyclingController) Close() {
	c.Stop()
	c.CyclingController.Close()
}
