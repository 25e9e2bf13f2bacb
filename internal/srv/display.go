package srv

import (
	"fmt"
	"path/filepath"

	"github.com/jypelle/papier/internal/srv/config"
	"github.com/jypelle/papier/internal/srv/controller"
	"github.com/jypelle/papier/internal/srv/device"
	"github.com/jypelle/papier/internal/srv/event"
	"github.com/jypelle/papier/internal/srv/inbox"
	"github.com/jypelle/papier/internal/srv/storage"
	"github.com/jypelle/papier/internal/srv/store"
	"github.com/jypelle/papier/internal/srv/transform"
	"github.com/sirupsen/logrus"
)

const manifestFilename = "manifest.jsonl"

// display holds everything built for one entry of the param file.
type display struct {
	id    string
	panel device.Panel
	store *store.ListenableStore
	base  *controller.DisplayController

	controller controller.Controller
	cycling    *controller.CyclingController
	auto       *controller.AutoCyclingController
	sleepy     *controller.SleepyController
	inbox      *inbox.Watcher
	closers    []func() error

	stateListener event.Listener[controller.Event]
	log           *logrus.Entry
}

func newDisplay(sc *config.ServerConfig, appStorage *storage.AppStorage, param *config.DisplayParam) (_ *display, err error) {
	d := &display{
		id:  param.Id,
		log: logrus.WithField("display", param.Id),
	}
	defer func() {
		if err != nil {
			d.close()
		}
	}()

	d.panel, err = device.NewPanel(param.Panel, param.Id)
	if err != nil {
		return nil, fmt.Errorf("display %s: %w", param.Id, err)
	}
	d.closers = append(d.closers, d.panel.Close)
	driver := device.NewListenableDriver(device.NewPanelDriver(param.Id, d.panel))

	inner, err := openStore(sc, param.Store)
	if err != nil {
		return nil, fmt.Errorf("display %s: %w", param.Id, err)
	}
	if closer, ok := inner.(interface{ Close() error }); ok {
		d.closers = append(d.closers, closer.Close)
	}
	d.store = store.NewListenableStore(inner)

	transformers := make([]transform.Transformer, 0, len(param.Transformers))
	for _, spec := range param.Transformers {
		t, err := transform.Build(spec)
		if err != nil {
			return nil, fmt.Errorf("display %s: transformer %s: %w", param.Id, spec.Id, err)
		}
		transformers = append(transformers, transform.NewListenableTransformer(t))
	}
	sequence, err := transform.NewSequence(transformers...)
	if err != nil {
		return nil, fmt.Errorf("display %s: %w", param.Id, err)
	}

	var listenable controller.Listenable
	switch {
	case param.Cycle.Enabled && param.Cycle.Interval > 0:
		d.auto, err = controller.NewAutoCyclingController(param.Id, driver, d.store, sequence, param.Cycle.IntervalDuration())
		if err != nil {
			return nil, err
		}
		d.cycling, d.base = d.auto.CyclingController, d.auto.DisplayController
		listenable = d.auto
	case param.Cycle.Enabled:
		d.cycling, err = controller.NewCyclingController(param.Id, driver, d.store, sequence)
		if err != nil {
			return nil, err
		}
		d.base = d.cycling.DisplayController
		listenable = d.cycling
	default:
		d.base, err = controller.NewDisplayController(param.Id, driver, d.store, sequence)
		if err != nil {
			return nil, err
		}
		listenable = d.base
	}
	d.controller = listenable
	if param.SleepAfter > 0 {
		d.sleepy = controller.NewSleepyController(listenable, param.SleepAfterDuration())
		d.controller = d.sleepy
	}

	if param.Inbox != "" {
		d.inbox, err = inbox.NewWatcher(param.Id, sc.Resolve(param.Inbox), appStorage, inbox.Settle)
		if err != nil {
			return nil, fmt.Errorf("display %s: %w", param.Id, err)
		}
	}

	d.log.Infof("Display created: %s controller on %s panel", d.controller.Type(), panelName(param.Panel))
	return d, nil
}

func panelName(kind string) string {
	if kind == "" {
		return device.SimulatedPanelKind
	}
	return kind
}

func openStore(sc *config.ServerConfig, param config.StoreParam) (store.Store, error) {
	if param.Kind != config.ManifestStoreKind {
		return store.NewMemoryStore(), nil
	}

	folder := sc.Resolve(param.Folder)
	blobs, err := store.NewFileBlobs(filepath.Join(folder, "blobs"))
	if err != nil {
		return nil, err
	}
	var manifest store.Manifest
	if param.Manifest == config.BadgerManifest {
		manifest, err = store.OpenBadgerManifest(filepath.Join(folder, "manifest"))
	} else {
		manifest, err = store.OpenJSONLinesManifest(filepath.Join(folder, manifestFilename))
	}
	if err != nil {
		return nil, err
	}
	return store.NewManifestStore(manifest, blobs), nil
}

// start restores the last image shown, then starts the timers and the inbox.
func (d *display) start(appStorage *storage.AppStorage, state *config.ServerState) error {
	if last := state.CurrentImage(d.id); last != "" {
		err := appStorage.UpdateDisplayController(d.id, func(c controller.Controller) error {
			img, err := c.Store().Get(last)
			if err != nil || img == nil {
				return err
			}
			return c.Display(last)
		})
		if err != nil {
			d.log.Warnf("Unable to restore image %s: %v", last, err)
		}
	}
	if d.cycling != nil {
		err := appStorage.UpdateDisplayController(d.id, func(c controller.Controller) error {
			cyclable, ok := controller.Find[controller.Cyclable](c)
			if !ok || c.CurrentImage() != nil {
				return nil
			}
			_, err := cyclable.DisplayNext()
			return err
		})
		if err != nil {
			d.log.Warnf("Unable to display a first image: %v", err)
		}
	}

	d.stateListener = event.ListenerFunc(func(ev controller.Event) error {
		imageId := ""
		if ev.Image != nil {
			imageId = ev.Image.Id()
		}
		state.SetCurrentImage(d.id, imageId)
		return nil
	})
	if err := d.base.AddListener(d.stateListener, controller.DisplayChangeEvent); err != nil {
		return err
	}

	if d.sleepy != nil {
		if err := d.sleepy.Start(); err != nil {
			return err
		}
	}
	if d.auto != nil {
		d.auto.Start()
	}
	if d.inbox != nil {
		if err := d.inbox.Start(); err != nil {
			return err
		}
	}
	return nil
}

func (d *display) stop() {
	if d.inbox != nil {
		d.inbox.Stop()
	}
	if d.auto != nil {
		d.auto.Stop()
	}
	if d.sleepy != nil {
		d.sleepy.Stop()
	}
	if d.stateListener != nil {
		d.base.RemoveListener(d.stateListener, controller.DisplayChangeEvent)
	}
	d.close()
}

func (d *display) close() {
	switch {
	case d.auto != nil:
		d.auto.Close()
	case d.cycling != nil:
		d.cycling.Close()
	case d.base != nil:
		d.base.Close()
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.log.Warnf("Unable to release display resource: %v", err)
		}
	}
	d.closers = nil
}
