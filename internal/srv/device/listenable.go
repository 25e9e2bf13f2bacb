package device

import (
	"sync"

	"github.com/jypelle/papier/internal/srv/event"
	"github.com/jypelle/papier/internal/srv/media"
)

type EventKind int

const (
	DisplayEvent EventKind = iota
	ClearEvent
	SleepEvent
	WakeEvent
)

func (k EventKind) String() string {
	switch k {
	case DisplayEvent:
		return "display"
	case ClearEvent:
		return "clear"
	case SleepEvent:
		return "sleep"
	case WakeEvent:
		return "wake"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind  EventKind
	Image *media.Image
}

// ListenableDriver emits an event after every state change of the wrapped driver. Idempotent no-ops
// (sleeping a sleeping driver) emit nothing. A display or clear that wakes the device emits WakeEvent first.
// Listeners run after the internal lock is released, so they may call back into the driver.
type ListenableDriver struct {
	Driver
	*event.Notifier[EventKind, Event]

	lock sync.Mutex
}

var _ Driver = (*ListenableDriver)(nil)

func NewListenableDriver(driver Driver) *ListenableDriver {
	return &ListenableDriver{
		Driver:   driver,
		Notifier: event.NewNotifier[EventKind, Event](),
	}
}

func (d *ListenableDriver) Unwrap() Driver {
	return d.Driver
}

func (d *ListenableDriver) Display(img *media.Image) error {
	d.lock.Lock()
	wasSleeping := d.Driver.Sleeping()
	err := d.Driver.Display(img)
	woken := wasSleeping && !d.Driver.Sleeping()
	d.lock.Unlock()
	if woken {
		d.Publish(WakeEvent, Event{Kind: WakeEvent})
	}
	if err != nil {
		return err
	}
	d.Publish(DisplayEvent, Event{Kind: DisplayEvent, Image: img})
	return nil
}

func (d *ListenableDriver) Clear() error {
	d.lock.Lock()
	wasSleeping := d.Driver.Sleeping()
	err := d.Driver.Clear()
	woken := wasSleeping && !d.Driver.Sleeping()
	d.lock.Unlock()
	if woken {
		d.Publish(WakeEvent, Event{Kind: WakeEvent})
	}
	if err != nil {
		return err
	}
	d.Publish(ClearEvent, Event{Kind: ClearEvent})
	return nil
}

func (d *ListenableDriver) Sleep() error {
	d.lock.Lock()
	if d.Driver.Sleeping() {
		d.lock.Unlock()
		return nil
	}
	err := d.Driver.Sleep()
	d.lock.Unlock()
	if err != nil {
		return err
	}
	d.Publish(SleepEvent, Event{Kind: SleepEvent})
	return nil
}

func (d *ListenableDriver) Wake() error {
	d.lock.Lock()
	if !d.Driver.Sleeping() {
		d.lock.Unlock()
		return nil
	}
	err := d.Driver.Wake()
	d.lock.Unlock()
	if err != nil {
		return err
	}
	d.Publish(WakeEvent, Event{Kind: WakeEvent})
	return nil
}
