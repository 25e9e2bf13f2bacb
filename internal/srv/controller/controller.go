// Package controller keeps the image believed shown on a display consistent with its store and driver.
package controller

import (
	"errors"
	"sync"

	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/device"
	"github.com/jypelle/papier/internal/srv/event"
	"github.com/jypelle/papier/internal/srv/media"
	"github.com/jypelle/papier/internal/srv/store"
	"github.com/jypelle/papier/internal/srv/transform"
	"github.com/sirupsen/logrus"
)

// Controller orchestrates the store, the transformer pipeline and the driver of one display.
type Controller interface {
	Id() string
	Type() string
	// CurrentImage is the untransformed image selected for the display, nil when blank.
	CurrentImage() *media.Image
	Display(imageId string) error
	Clear() error
	Driver() device.Driver
	Store() store.Store
	Pipeline() transform.Pipeline
}

type EventKind int

const (
	DisplayChangeEvent EventKind = iota
)

func (k EventKind) String() string {
	if k == DisplayChangeEvent {
		return "display_change"
	}
	return "unknown"
}

type Event struct {
	Kind         EventKind
	ControllerId string
	Image        *media.Image
}

// Listenable controllers emit DisplayChangeEvent whatever the reason of the change.
type Listenable interface {
	Controller
	AddListener(listener event.Listener[Event], kind EventKind) error
	RemoveListener(listener event.Listener[Event], kind EventKind)
}

// Wrapper is implemented by controllers decorating another one.
type Wrapper interface {
	Unwrap() Controller
}

type DisplayController struct {
	*event.Notifier[EventKind, Event]

	id       string
	log      *logrus.Entry
	driver   *device.ListenableDriver
	store    *store.ListenableStore
	sequence *transform.Sequence

	// opLock serializes Display, Clear and the removal of the current image.
	opLock sync.Mutex

	stateLock  sync.RWMutex
	current    *media.Image
	shown      *media.Image
	displaying bool
	// replacing is the id whose removal is part of a ReplaceImage.
	replacing string

	currentRemoved func() error

	driverDisplayListener event.Listener[device.Event]
	driverClearListener   event.Listener[device.Event]
	storeRemoveListener   event.Listener[store.Event]
	sequenceListener      event.Listener[transform.SequenceEvent]
	transformerListener   event.Listener[transform.TransformerEvent]
}

type listenableTransformer interface {
	AddListener(listener event.Listener[transform.TransformerEvent], kind transform.TransformerEventKind) error
	RemoveListener(listener event.Listener[transform.TransformerEvent], kind transform.TransformerEventKind)
}

var (
	sequenceEventKinds    = []transform.SequenceEventKind{transform.AddEvent, transform.RemoveEvent, transform.MoveEvent}
	transformerEventKinds = []transform.TransformerEventKind{transform.ActivateEvent, transform.ConfigureEvent}
)

var _ Listenable = (*DisplayController)(nil)

func NewDisplayController(id string, driver *device.ListenableDriver, s *store.ListenableStore, sequence *transform.Sequence) (*DisplayController, error) {
	c := &DisplayController{
		Notifier: event.NewNotifier[EventKind, Event](),
		id:       id,
		log:      logrus.WithField("display", id),
		driver:   driver,
		store:    s,
		sequence: sequence,
	}
	c.currentRemoved = c.driver.Clear

	c.driverDisplayListener = event.ListenerFunc(c.onDriverDisplay)
	c.driverClearListener = event.ListenerFunc(c.onDriverClear)
	c.storeRemoveListener = event.ListenerFunc(c.onStoreRemove)
	c.sequenceListener = event.ListenerFunc(c.onSequenceChange)
	c.transformerListener = event.ListenerFunc(func(ev transform.TransformerEvent) error {
		return c.Refresh()
	})

	if err := driver.AddListener(c.driverDisplayListener, device.DisplayEvent); err != nil {
		return nil, err
	}
	if err := driver.AddListener(c.driverClearListener, device.ClearEvent); err != nil {
		driver.RemoveListener(c.driverDisplayListener, device.DisplayEvent)
		return nil, err
	}
	if err := s.AddListener(c.storeRemoveListener, store.RemoveEvent); err != nil {
		driver.RemoveListener(c.driverDisplayListener, device.DisplayEvent)
		driver.RemoveListener(c.driverClearListener, device.ClearEvent)
		return nil, err
	}
	for _, kind := range sequenceEventKinds {
		if err := sequence.AddListener(c.sequenceListener, kind); err != nil {
			c.Close()
			return nil, err
		}
	}
	for _, t := range sequence.Snapshot() {
		c.watchTransformer(t, true)
	}
	return c, nil
}

func (c *DisplayController) Id() string {
	return c.id
}

func (c *DisplayController) Type() string {
	return "display"
}

func (c *DisplayController) Driver() device.Driver {
	return c.driver
}

func (c *DisplayController) Store() store.Store {
	return c.store
}

func (c *DisplayController) Pipeline() transform.Pipeline {
	return c.sequence
}

func (c *DisplayController) Sequence() *transform.Sequence {
	return c.sequence
}

func (c *DisplayController) CurrentImage() *media.Image {
	c.stateLock.RLock()
	defer c.stateLock.RUnlock()
	return c.current
}

// Display shows a stored image through the active transformers. Displaying the current image again does nothing.
func (c *DisplayController) Display(imageId string) error {
	c.opLock.Lock()
	defer c.opLock.Unlock()
	return c.display(imageId)
}

func (c *DisplayController) display(imageId string) error {
	img, err := c.store.Get(imageId)
	if err != nil {
		return err
	}
	if img == nil {
		return apimodel.NotFoundf("image %s", imageId)
	}
	if img.Equal(c.CurrentImage()) {
		c.log.Debugf("Image %s already displayed", imageId)
		return nil
	}

	transformed, err := transform.Apply(c.sequence.Snapshot(), img)
	if err != nil {
		return err
	}

	c.stateLock.Lock()
	c.displaying = true
	c.stateLock.Unlock()

	err = c.driver.Display(transformed)

	c.stateLock.Lock()
	c.displaying = false
	c.current = img
	c.shown = nil
	if err == nil {
		c.shown = transformed
	}
	c.stateLock.Unlock()

	c.log.Infof("Display image %s", imageId)
	c.fireDisplayChange(img)
	return err
}

// ReplaceImage stores img in place of the image with the same id. A replaced current image is displayed
// again once, without the reaction to its removal.
func (c *DisplayController) ReplaceImage(img *media.Image) error {
	c.opLock.Lock()
	defer c.opLock.Unlock()

	current := c.CurrentImage()
	wasCurrent := current != nil && current.Id() == img.Id()

	c.stateLock.Lock()
	c.replacing = img.Id()
	c.stateLock.Unlock()
	removed, err := c.store.Remove(img.Id())
	if err == nil {
		err = c.store.Add(img)
	}
	c.stateLock.Lock()
	c.replacing = ""
	c.stateLock.Unlock()

	if err != nil {
		if wasCurrent && removed {
			c.log.Warnf("Current image %s lost while being replaced: %v", img.Id(), err)
			return errors.Join(err, c.currentRemoved())
		}
		return err
	}
	if wasCurrent {
		return c.display(img.Id())
	}
	return nil
}

// Refresh draws the current image again when the active transformers now give a different result.
func (c *DisplayController) Refresh() error {
	c.opLock.Lock()
	defer c.opLock.Unlock()

	c.stateLock.RLock()
	current, shown := c.current, c.shown
	c.stateLock.RUnlock()
	if current == nil {
		return nil
	}
	transformed, err := transform.Apply(c.sequence.Snapshot(), current)
	if err != nil {
		return err
	}
	if transformed.Equal(shown) {
		return nil
	}

	c.stateLock.Lock()
	c.displaying = true
	c.stateLock.Unlock()

	err = c.driver.Display(transformed)

	c.stateLock.Lock()
	c.displaying = false
	c.shown = nil
	if err == nil {
		c.shown = transformed
	}
	c.stateLock.Unlock()

	c.log.Infof("Redraw image %s", current.Id())
	return err
}

// Clear blanks the driver. The current image is reset when the driver reports the clear.
func (c *DisplayController) Clear() error {
	c.opLock.Lock()
	defer c.opLock.Unlock()
	return c.driver.Clear()
}

// Close unregisters the controller from its driver, store and transformers.
func (c *DisplayController) Close() {
	c.driver.RemoveListener(c.driverDisplayListener, device.DisplayEvent)
	c.driver.RemoveListener(c.driverClearListener, device.ClearEvent)
	c.store.RemoveListener(c.storeRemoveListener, store.RemoveEvent)
	for _, kind := range sequenceEventKinds {
		c.sequence.RemoveListener(c.sequenceListener, kind)
	}
	for _, t := range c.sequence.Snapshot() {
		c.watchTransformer(t, false)
	}
}

func (c *DisplayController) watchTransformer(t transform.Transformer, watch bool) {
	l, ok := t.(listenableTransformer)
	if !ok {
		return
	}
	for _, kind := range transformerEventKinds {
		if !watch {
			l.RemoveListener(c.transformerListener, kind)
		} else if err := l.AddListener(c.transformerListener, kind); err != nil {
			c.log.Debugf("Transformer %s already watched: %v", t.Id(), err)
		}
	}
}

func (c *DisplayController) onSequenceChange(ev transform.SequenceEvent) error {
	switch ev.Kind {
	case transform.AddEvent:
		c.watchTransformer(ev.Transformer, true)
	case transform.RemoveEvent:
		if !ev.Removed {
			return nil
		}
		c.watchTransformer(ev.Transformer, false)
	}
	return c.Refresh()
}

func (c *DisplayController) fireDisplayChange(img *media.Image) {
	c.Publish(DisplayChangeEvent, Event{Kind: DisplayChangeEvent, ControllerId: c.id, Image: img})
}

func (c *DisplayController) onDriverClear(ev device.Event) error {
	if img := c.driver.Image(); img != nil {
		c.log.Warnf("Driver reported a clear but still shows image %s", img.Id())
	}

	c.stateLock.Lock()
	c.current = nil
	c.shown = nil
	c.stateLock.Unlock()

	c.log.Infof("Display cleared")
	c.fireDisplayChange(nil)
	return nil
}

// onDriverDisplay adopts an image displayed directly on the driver, bypassing the controller.
func (c *DisplayController) onDriverDisplay(ev device.Event) error {
	c.stateLock.RLock()
	selfInitiated := c.displaying
	c.stateLock.RUnlock()
	if selfInitiated {
		return nil
	}

	img := ev.Image
	existing, err := c.store.Get(img.Id())
	if err != nil {
		return err
	}
	if existing == nil {
		if err := c.store.Add(img); err != nil {
			return err
		}
	}

	c.stateLock.Lock()
	c.current = img
	c.shown = img
	c.stateLock.Unlock()

	c.log.Infof("Driver displayed image %s directly", img.Id())
	c.fireDisplayChange(img)
	return nil
}

func (c *DisplayController) onStoreRemove(ev store.Event) error {
	if !ev.Removed {
		return nil
	}
	c.stateLock.RLock()
	current, replacing := c.current, c.replacing
	c.stateLock.RUnlock()
	if current == nil || current.Id() != ev.ImageId || replacing == ev.ImageId {
		return nil
	}

	c.opLock.Lock()
	defer c.opLock.Unlock()
	c.log.Infof("Current image %s removed from store", ev.ImageId)
	return c.currentRemoved()
}

// Find returns the first controller of type T in a decorator chain.
func Find[T any](c Controller) (T, bool) {
	for {
		if t, ok := c.(T); ok {
			return t, true
		}
		w, ok := c.(Wrapper)
		if !ok {
			var zero T
			return zero, false
		}
		c = w.Unwrap()
	}
}
