package device

import (
	"image"
	"sync"

	"gioui.org/app"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"github.com/sirupsen/logrus"
)

// WindowPanel shows the display in a desktop window.
type WindowPanel struct {
	lock    sync.RWMutex
	title   string
	frame   image.Image
	powered bool

	window *app.Window
}

var _ Panel = (*WindowPanel)(nil)

var mainOnce sync.Once

func NewWindowPanel(title string, width, height int) (*WindowPanel, error) {
	p := &WindowPanel{
		title:   title,
		powered: true,
		window: app.NewWindow(
			app.Title(title),
			app.Size(unit.Px(float32(width)), unit.Px(float32(height))),
			app.MinSize(unit.Px(float32(width/2)), unit.Px(float32(height/2))),
		),
	}
	go func() {
		if err := p.gioloop(); err != nil {
			logrus.Warnf("Window %s closed: %v", title, err)
		}
	}()
	mainOnce.Do(func() { go app.Main() })
	return p, nil
}

func (p *WindowPanel) Render(pixels image.Image) error {
	p.lock.Lock()
	p.frame = pixels
	p.lock.Unlock()
	p.window.Invalidate()
	return nil
}

func (p *WindowPanel) Blank() error {
	p.lock.Lock()
	p.frame = nil
	p.lock.Unlock()
	p.window.Invalidate()
	return nil
}

func (p *WindowPanel) PowerOff() error {
	p.lock.Lock()
	p.powered = false
	p.lock.Unlock()
	p.window.Invalidate()
	return nil
}

func (p *WindowPanel) PowerOn() error {
	p.lock.Lock()
	p.powered = true
	p.lock.Unlock()
	p.window.Invalidate()
	return nil
}

func (p *WindowPanel) Close() error {
	p.window.Close()
	return nil
}

func (p *WindowPanel) gioloop() error {
	var ops op.Ops
	for {
		e := <-p.window.Events()
		switch e := e.(type) {
		case system.DestroyEvent:
			return e.Err
		case system.FrameEvent:
			gtx := layout.NewContext(&ops, e)

			p.lock.RLock()
			frame := p.frame
			powered := p.powered
			p.lock.RUnlock()

			if frame != nil && powered {
				img := widget.Image{Src: paint.NewImageOp(frame), Fit: widget.Contain}
				img.Layout(gtx)
			}
			e.Frame(gtx.Ops)
		}
	}
}
