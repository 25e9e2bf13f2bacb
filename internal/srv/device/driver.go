package device

import (
	"fmt"
	"image"
	"sync"

	"github.com/jypelle/papier/internal/srv/media"
	"github.com/sirupsen/logrus"
)

// Driver is the contract of a display device.
//
// Display wakes a sleeping device. Clear leaves no image. Sleep and Wake are idempotent.
type Driver interface {
	Display(img *media.Image) error
	Clear() error
	Sleep() error
	Wake() error
	Sleeping() bool
	Image() *media.Image
}

// Panel is the hardware (or simulated) surface behind a PanelDriver.
type Panel interface {
	Render(pixels image.Image) error
	Blank() error
	PowerOff() error
	PowerOn() error
	Close() error
}

// PanelDriver implements the Driver state machine once for every kind of panel.
type PanelDriver struct {
	lock     sync.RWMutex
	name     string
	panel    Panel
	sleeping bool
	image    *media.Image
}

var _ Driver = (*PanelDriver)(nil)

func NewPanelDriver(name string, panel Panel) *PanelDriver {
	return &PanelDriver{name: name, panel: panel}
}

func (d *PanelDriver) Panel() Panel {
	return d.panel
}

func (d *PanelDriver) Display(img *media.Image) error {
	pixels, err := img.Decode()
	if err != nil {
		return err
	}

	d.lock.Lock()
	defer d.lock.Unlock()

	if err := d.wake(); err != nil {
		return err
	}
	logrus.Debugf("Display %s shows image %s", d.name, img.Id())
	if err := d.panel.Render(pixels); err != nil {
		return fmt.Errorf("unable to render image %s on %s: %w", img.Id(), d.name, err)
	}
	d.image = img
	return nil
}

func (d *PanelDriver) Clear() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	logrus.Debugf("Clear display %s", d.name)
	if err := d.panel.Blank(); err != nil {
		return fmt.Errorf("unable to clear %s: %w", d.name, err)
	}
	d.image = nil
	return nil
}

func (d *PanelDriver) Sleep() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.sleeping {
		return nil
	}
	logrus.Debugf("Display %s goes to sleep", d.name)
	if err := d.panel.PowerOff(); err != nil {
		return fmt.Errorf("unable to put %s to sleep: %w", d.name, err)
	}
	d.sleeping = true
	return nil
}

func (d *PanelDriver) Wake() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.wake()
}

func (d *PanelDriver) wake() error {
	if !d.sleeping {
		return nil
	}
	logrus.Debugf("Display %s wakes up", d.name)
	if err := d.panel.PowerOn(); err != nil {
		return fmt.Errorf("unable to wake %s: %w", d.name, err)
	}
	d.sleeping = false
	return nil
}

func (d *PanelDriver) Sleeping() bool {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.sleeping
}

func (d *PanelDriver) Image() *media.Image {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.image
}

func (d *PanelDriver) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.panel.Close()
}
