package device

import (
	"errors"
	"image"
	"testing"

	"github.com/jypelle/papier/internal/srv/event"
	"github.com/jypelle/papier/internal/srv/media"
	"github.com/jypelle/papier/internal/srv/media/mediatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordEvents(t *testing.T, d *ListenableDriver) *[]Event {
	t.Helper()
	var events []Event
	listener := event.ListenerFunc(func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	for _, kind := range []EventKind{DisplayEvent, ClearEvent, SleepEvent, WakeEvent} {
		require.NoError(t, d.AddListener(listener, kind))
	}
	return &events
}

func kinds(events []Event) []EventKind {
	result := make([]EventKind, len(events))
	for i, ev := range events {
		result[i] = ev.Kind
	}
	return result
}

func TestPanelDriverDisplayWakes(t *testing.T) {
	panel := NewSimulatedPanel("test")
	d := NewPanelDriver("test", panel)

	require.NoError(t, d.Sleep())
	assert.True(t, d.Sleeping())
	assert.False(t, panel.Powered())

	img := mediatest.PNG("a", nil)
	require.NoError(t, d.Display(img))
	assert.False(t, d.Sleeping())
	assert.True(t, panel.Powered())
	assert.Same(t, img, d.Image())
	assert.Equal(t, image.Rect(0, 0, 8, 4), panel.Frame().Bounds())

	require.NoError(t, d.Clear())
	assert.Nil(t, d.Image())
	assert.Nil(t, panel.Frame())
}

func TestPanelDriverRejectsUndecodableImage(t *testing.T) {
	d := NewPanelDriver("test", NewSimulatedPanel("test"))
	err := d.Display(media.New("junk", media.PNG, []byte("not a png"), nil))
	assert.Error(t, err)
	assert.Nil(t, d.Image())
}

func TestListenableDriverEmitsOnlyOnChange(t *testing.T) {
	d := NewListenableDriver(NewPanelDriver("test", NewSimulatedPanel("test")))
	events := recordEvents(t, d)

	require.NoError(t, d.Wake())
	require.NoError(t, d.Sleep())
	require.NoError(t, d.Sleep())
	require.NoError(t, d.Wake())
	require.NoError(t, d.Wake())
	assert.Equal(t, []EventKind{SleepEvent, WakeEvent}, kinds(*events))

	*events = nil
	require.NoError(t, d.Sleep())
	img := mediatest.PNG("a", nil)
	require.NoError(t, d.Display(img))
	require.NoError(t, d.Clear())
	assert.Equal(t, []EventKind{SleepEvent, WakeEvent, DisplayEvent, ClearEvent}, kinds(*events))
	assert.Same(t, img, (*events)[2].Image)
	assert.False(t, d.Sleeping())
}

type failingPanel struct {
	SimulatedPanel
}

func (p *failingPanel) Render(pixels image.Image) error {
	return errors.New("bus error")
}

func TestListenableDriverSilentOnFailure(t *testing.T) {
	d := NewListenableDriver(NewPanelDriver("test", &failingPanel{}))
	events := recordEvents(t, d)

	assert.Error(t, d.Display(mediatest.PNG("a", nil)))
	assert.Empty(t, *events)
	assert.Nil(t, d.Image())
}

func TestListenableDriverReportsWakeOfFailedDisplay(t *testing.T) {
	d := NewListenableDriver(NewPanelDriver("test", &failingPanel{}))
	require.NoError(t, d.Sleep())
	events := recordEvents(t, d)

	assert.Error(t, d.Display(mediatest.PNG("a", nil)))
	assert.Equal(t, []EventKind{WakeEvent}, kinds(*events))
	assert.False(t, d.Sleeping())
}

func TestListenerMayCallBackIntoDriver(t *testing.T) {
	d := NewListenableDriver(NewPanelDriver("test", NewSimulatedPanel("test")))
	require.NoError(t, d.AddListener(event.ListenerFunc(func(ev Event) error {
		return d.Sleep()
	}), DisplayEvent))

	require.NoError(t, d.Display(mediatest.PNG("a", nil)))
	assert.True(t, d.Sleeping())
}

func TestNewPanel(t *testing.T) {
	p, err := NewPanel(SimulatedPanelKind, "x")
	require.NoError(t, err)
	assert.IsType(t, &SimulatedPanel{}, p)

	_, err = NewPanel("crt", "x")
	assert.Error(t, err)
}
