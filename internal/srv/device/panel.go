package device

import (
	"fmt"
)

const (
	SimulatedPanelKind = "simulated"
	WindowPanelKind    = "window"
	Ssd1306PanelKind   = "ssd1306"
	EpaperPanelKind    = "waveshare2in13v2"
)

// NewPanel opens the panel of the given kind.
func NewPanel(kind string, name string) (Panel, error) {
	switch kind {
	case "", SimulatedPanelKind:
		return NewSimulatedPanel(name), nil
	case WindowPanelKind:
		return NewWindowPanel("papier - "+name, 250, 122)
	case Ssd1306PanelKind:
		return NewSsd1306Panel()
	case EpaperPanelKind:
		return NewEpaperPanel()
	default:
		return nil, fmt.Errorf("unknown panel kind %q", kind)
	}
}
