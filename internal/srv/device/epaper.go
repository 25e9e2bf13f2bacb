package device

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/jypelle/papier/internal/srv/media"
	"golang.org/x/image/draw"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/devices/v3/waveshare2in13v2"
	"periph.io/x/host/v3"
)

// EpaperPanel drives a Waveshare 2.13" v2 e-paper hat on the first SPI port.
// The controller must be initialized again after a deep sleep.
type EpaperPanel struct {
	lock    sync.Mutex
	port    spi.PortCloser
	dev     *waveshare2in13v2.Dev
	asleep  bool
	drawBuf *image1bit.VerticalLSB
}

var _ Panel = (*EpaperPanel)(nil)

func NewEpaperPanel() (*EpaperPanel, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("unable to initialize host: %w", err)
	}

	port, err := spireg.Open("")
	if err != nil {
		return nil, fmt.Errorf("unable to open spi port: %w", err)
	}
	dev, err := waveshare2in13v2.NewHat(port, &waveshare2in13v2.EPD2in13v2)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("unable to open e-paper hat: %w", err)
	}
	if err := dev.Init(); err != nil {
		port.Close()
		return nil, fmt.Errorf("unable to initialize e-paper: %w", err)
	}
	if err := dev.Clear(color.White); err != nil {
		port.Close()
		return nil, fmt.Errorf("unable to clear e-paper: %w", err)
	}

	return &EpaperPanel{
		port:    port,
		dev:     dev,
		drawBuf: image1bit.NewVerticalLSB(dev.Bounds()),
	}, nil
}

func (p *EpaperPanel) awake() error {
	if !p.asleep {
		return nil
	}
	if err := p.dev.Init(); err != nil {
		return fmt.Errorf("unable to initialize e-paper: %w", err)
	}
	p.asleep = false
	return nil
}

func (p *EpaperPanel) Render(pixels image.Image) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if err := p.awake(); err != nil {
		return err
	}
	bounds := p.dev.Bounds()
	draw.Draw(p.drawBuf, p.drawBuf.Bounds(), media.Scale(pixels, bounds, color.White), image.Point{}, draw.Src)
	return p.dev.Draw(bounds, p.drawBuf, image.Point{})
}

func (p *EpaperPanel) Blank() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if err := p.awake(); err != nil {
		return err
	}
	return p.dev.Clear(color.White)
}

func (p *EpaperPanel) PowerOff() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if err := p.dev.Sleep(); err != nil {
		return err
	}
	p.asleep = true
	return nil
}

func (p *EpaperPanel) PowerOn() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.awake()
}

func (p *EpaperPanel) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if !p.asleep {
		if err := p.dev.Sleep(); err != nil {
			return err
		}
	}
	return p.port.Close()
}
