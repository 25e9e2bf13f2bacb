//go:build !amd64

package device

import (
	"errors"
	"image"
)

type WindowPanel struct{}

var _ Panel = (*WindowPanel)(nil)

func NewWindowPanel(title string, width, height int) (*WindowPanel, error) {
	return nil, errors.New("window panel is only available on amd64")
}

func (p *WindowPanel) Render(pixels image.Image) error { return nil }
func (p *WindowPanel) Blank() error                    { return nil }
func (p *WindowPanel) PowerOff() error                 { return nil }
func (p *WindowPanel) PowerOn() error                  { return nil }
func (p *WindowPanel) Close() error                    { return nil }
