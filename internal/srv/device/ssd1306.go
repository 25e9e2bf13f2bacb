package device

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/jypelle/papier/internal/srv/media"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

// Ssd1306Panel drives a SSD1306 OLED on the first I²C bus.
type Ssd1306Panel struct {
	oledLock    sync.Mutex
	oledDisplay *ssd1306.Dev
	i2cBus      i2c.BusCloser
}

var _ Panel = (*Ssd1306Panel)(nil)

func NewSsd1306Panel() (*Ssd1306Panel, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("unable to initialize host: %w", err)
	}

	// Open a handle to the first available I²C bus:
	bus, err := i2creg.Open("")
	if err != nil {
		return nil, fmt.Errorf("unable to open i2c bus: %w", err)
	}

	// Open a handle to a ssd1306 connected on the I²C bus:
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("unable to initialize oled display: %w", err)
	}
	if err := dev.SetContrast(1); err != nil {
		bus.Close()
		return nil, fmt.Errorf("unable to set oled contrast: %w", err)
	}

	return &Ssd1306Panel{oledDisplay: dev, i2cBus: bus}, nil
}

func (p *Ssd1306Panel) Render(pixels image.Image) error {
	p.oledLock.Lock()
	defer p.oledLock.Unlock()
	bounds := p.oledDisplay.Bounds()
	return p.oledDisplay.Draw(bounds, media.Scale(pixels, bounds, color.Black), image.Point{})
}

func (p *Ssd1306Panel) Blank() error {
	p.oledLock.Lock()
	defer p.oledLock.Unlock()
	return p.oledDisplay.Draw(p.oledDisplay.Bounds(), image.NewUniform(color.Black), image.Point{})
}

func (p *Ssd1306Panel) PowerOff() error {
	p.oledLock.Lock()
	defer p.oledLock.Unlock()
	return p.oledDisplay.Halt()
}

func (p *Ssd1306Panel) PowerOn() error {
	p.oledLock.Lock()
	defer p.oledLock.Unlock()
	// Hack to force display on (calling Draw() is not enough)
	return p.oledDisplay.SetContrast(1)
}

func (p *Ssd1306Panel) Close() error {
	p.oledLock.Lock()
	defer p.oledLock.Unlock()
	if err := p.oledDisplay.Halt(); err != nil {
		return err
	}
	return p.i2cBus.Close()
}
