package srv

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jypelle/papier/internal/srv/controller"
	"github.com/jypelle/papier/internal/srv/media/mediatest"
	"github.com/jypelle/papier/internal/srv/proxy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testParam = `
api:
  enabled: false
proxy:
  enabled: true
  port: 0
displays:
  - id: wall
    panel: waveshare2in13v2
    store:
      kind: memory
    cycle:
      enabled: true
  - id: shelf
    panel: ssd1306
    store:
      kind: manifest
      manifest: jsonl
      folder: images/shelf
    sleep_after: 60
    inbox: inbox/shelf
    transformers:
      - id: fit
        kind: fit
        active: true
        configuration:
          width: 4
          height: 4
`

func newTestApp(t *testing.T, configDir string) *ServerApp {
	t.Helper()
	app, err := NewServerApp(configDir, false, true)
	require.NoError(t, err)
	require.NoError(t, app.Start())
	return app
}

func currentImageId(t *testing.T, app *ServerApp, displayId string) string {
	t.Helper()
	imageId := ""
	require.NoError(t, app.Storage().UseDisplayController(displayId, func(c controller.Controller) error {
		if current := c.CurrentImage(); current != nil {
			imageId = current.Id()
		}
		return nil
	}))
	return imageId
}

func TestServerAppLifecycle(t *testing.T) {
	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "param.yaml"), []byte(testParam), 0660))

	app := newTestApp(t, configDir)
	assert.ElementsMatch(t, []string{"wall", "shelf"}, app.Storage().DisplayIds())
	require.NotNil(t, app.ProxyAddr())

	// Inbox import
	data, err := mediatest.PNG("poster", nil).Data()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "inbox", "shelf", "poster.png"), data, 0660))
	assert.Eventually(t, func() bool {
		found := false
		_ = app.Storage().UseDisplayController("shelf", func(c controller.Controller) error {
			img, err := c.Store().Get("poster")
			found = err == nil && img != nil
			return nil
		})
		return found
	}, 5*time.Second, 50*time.Millisecond)

	// Remote display through the proxy listener
	channel, err := proxy.DialGrpc(fmt.Sprintf("127.0.0.1:%d", app.ProxyAddr().(*net.TCPAddr).Port))
	require.NoError(t, err)
	client := proxy.NewClient(channel, proxy.DefaultTimeout)
	require.NoError(t, client.Controller("shelf").Display("poster"))
	assert.Equal(t, "sleepy(display)", client.Controller("shelf").Type())
	require.NoError(t, client.Close())
	assert.Equal(t, "poster", currentImageId(t, app, "shelf"))

	app.Stop(false)

	// The manifest store and the state survive a restart
	app = newTestApp(t, configDir)
	defer app.Stop(false)
	assert.Equal(t, "poster", currentImageId(t, app, "shelf"))
	assert.Equal(t, "", currentImageId(t, app, "wall"))
}

func TestServerAppRejectsInvalidParam(t *testing.T) {
	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "param.yaml"), []byte("displays:\n  - id: a\n  - id: a\n"), 0660))

	_, err := NewServerApp(configDir, false, true)
	assert.Error(t, err)
}
