package config

import (
	_ "embed"
	"time"

	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/device"
	"github.com/jypelle/papier/internal/srv/transform"
)

//go:embed param_default.yaml
var ParamDefaultFile []byte

const (
	MemoryStoreKind   = "memory"
	ManifestStoreKind = "manifest"

	JSONLinesManifest = "jsonl"
	BadgerManifest    = "badger"
)

type ServerParam struct {
	ApiParam      ApiParam        `yaml:"api"`
	ProxyParam    ProxyParam      `yaml:"proxy"`
	DisplayParams []*DisplayParam `yaml:"displays"`
}

type ApiParam struct {
	Enabled bool   `yaml:"enabled"`
	Port    int64  `yaml:"port"`
	Tls     bool   `yaml:"tls"`
	ApiKey  string `yaml:"api_key"`
}

// ProxyParam configures the gRPC listener of the remote proxy.
type ProxyParam struct {
	Enabled bool  `yaml:"enabled"`
	Port    int64 `yaml:"port"`
}

type DisplayParam struct {
	Id           string           `yaml:"id"`
	Panel        string           `yaml:"panel"`
	Store        StoreParam       `yaml:"store"`
	Cycle        CycleParam       `yaml:"cycle"`
	SleepAfter   float64          `yaml:"sleep_after"`
	Inbox        string           `yaml:"inbox,omitempty"`
	Transformers []transform.Spec `yaml:"transformers,omitempty"`
}

type StoreParam struct {
	Kind     string `yaml:"kind"`
	Manifest string `yaml:"manifest,omitempty"`
	Folder   string `yaml:"folder,omitempty"`
}

type CycleParam struct {
	Enabled bool `yaml:"enabled"`
	// Interval in seconds, 0 cycles on request only
	Interval float64 `yaml:"interval"`
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (p CycleParam) IntervalDuration() time.Duration {
	return seconds(p.Interval)
}

func (p *DisplayParam) SleepAfterDuration() time.Duration {
	return seconds(p.SleepAfter)
}

func (p *ServerParam) Validate() error {
	ids := make(map[string]bool)
	for _, display := range p.DisplayParams {
		if display.Id == "" {
			return apimodel.InvalidArgumentf("display without id")
		}
		if ids[display.Id] {
			return apimodel.InvalidArgumentf("display %s declared twice", display.Id)
		}
		ids[display.Id] = true

		switch display.Panel {
		case "", device.SimulatedPanelKind, device.WindowPanelKind, device.Ssd1306PanelKind, device.EpaperPanelKind:
		default:
			return apimodel.InvalidArgumentf("display %s: unknown panel %q", display.Id, display.Panel)
		}

		switch display.Store.Kind {
		case "", MemoryStoreKind:
		case ManifestStoreKind:
			if display.Store.Folder == "" {
				return apimodel.InvalidArgumentf("display %s: manifest store without folder", display.Id)
			}
			switch display.Store.Manifest {
			case "", JSONLinesManifest, BadgerManifest:
			default:
				return apimodel.InvalidArgumentf("display %s: unknown manifest %q", display.Id, display.Store.Manifest)
			}
		default:
			return apimodel.InvalidArgumentf("display %s: unknown store %q", display.Id, display.Store.Kind)
		}

		if display.Cycle.Interval < 0 || display.SleepAfter < 0 {
			return apimodel.InvalidArgumentf("display %s: negative duration", display.Id)
		}
	}
	return nil
}
