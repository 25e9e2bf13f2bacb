package device

import (
	"errors"
	"image"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrPanelClosed = errors.New("panel closed")

// SimulatedPanel keeps the last frame in memory. Used with -s and in tests.
type SimulatedPanel struct {
	lock    sync.RWMutex
	name    string
	frame   image.Image
	renders int
	powered bool
	closed  bool
}

var _ Panel = (*SimulatedPanel)(nil)

func NewSimulatedPanel(name string) *SimulatedPanel {
	return &SimulatedPanel{name: name, powered: true}
}

func (p *SimulatedPanel) Render(pixels image.Image) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.closed {
		return ErrPanelClosed
	}
	logrus.Debugf("[%s] render %v", p.name, pixels.Bounds())
	p.frame = pixels
	p.renders++
	return nil
}

func (p *SimulatedPanel) Blank() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.closed {
		return ErrPanelClosed
	}
	logrus.Debugf("[%s] blank", p.name)
	p.frame = nil
	return nil
}

func (p *SimulatedPanel) PowerOff() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	logrus.Debugf("[%s] power off", p.name)
	p.powered = false
	return nil
}

func (p *SimulatedPanel) PowerOn() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	logrus.Debugf("[%s] power on", p.name)
	p.powered = true
	return nil
}

func (p *SimulatedPanel) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.closed = true
	return nil
}

func (p *SimulatedPanel) Frame() image.Image {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.frame
}

func (p *SimulatedPanel) Renders() int {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.renders
}

func (p *SimulatedPanel) Powered() bool {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.powered
}
