package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/config"
	"github.com/jypelle/papier/internal/srv/controller"
	"github.com/jypelle/papier/internal/srv/device"
	"github.com/jypelle/papier/internal/srv/media/mediatest"
	"github.com/jypelle/papier/internal/srv/storage"
	"github.com/jypelle/papier/internal/srv/store"
	"github.com/jypelle/papier/internal/srv/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apiKey = "secret"

type client struct {
	t      *testing.T
	server *httptest.Server
}

func newClient(t *testing.T) *client {
	t.Helper()
	appStorage := storage.NewAppStorage()
	require.NoError(t, appStorage.UpdateDisplayControllers(func(controllers map[string]controller.Controller) error {
		rotate := transform.NewRotate("rot", "turn", false)
		fit := transform.NewFit("fit", "", false)
		sequence, err := transform.NewSequence(rotate, fit)
		require.NoError(t, err)
		c, err := controller.NewCyclingController(
			"main",
			device.NewListenableDriver(device.NewPanelDriver("main", device.NewSimulatedPanel("main"))),
			store.NewListenableStore(store.NewMemoryStore(mediatest.PNG("a", nil))),
			sequence,
		)
		require.NoError(t, err)
		controllers["main"] = c
		return nil
	}))

	api := NewApi(appStorage, config.ApiParam{Enabled: true, ApiKey: apiKey}, t.TempDir())
	server := httptest.NewServer(api.Handler())
	t.Cleanup(func() {
		close(api.closing)
		server.Close()
	})
	return &client{t: t, server: server}
}

func (c *client) do(method string, path string, contentType string, body []byte) (*http.Response, []byte) {
	c.t.Helper()
	req, err := http.NewRequest(method, c.server.URL+path, bytes.NewReader(body))
	require.NoError(c.t, err)
	req.Header.Set("x-api-key", apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, raw
}

func (c *client) json(method string, path string, body interface{}, out interface{}) int {
	c.t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(c.t, err)
	}
	resp, data := c.do(method, path, "application/json", raw)
	if out != nil && len(data) > 0 {
		require.NoError(c.t, json.Unmarshal(data, out), string(data))
	}
	return resp.StatusCode
}

func TestApiKeyIsRequired(t *testing.T) {
	c := newClient(t)

	resp, err := c.server.Client().Get(c.server.URL + "/api/is_alive")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	assert.Equal(t, http.StatusOK, c.json("GET", "/api/is_alive", nil, nil))

	var message apimodel.ErrorMessage
	assert.Equal(t, http.StatusNotFound, c.json("GET", "/api/unknown", nil, &message))
	assert.Equal(t, "Page not found", message.ErrMessage)
}

func TestDisplays(t *testing.T) {
	c := newClient(t)

	var ids []string
	assert.Equal(t, http.StatusOK, c.json("GET", "/api/displays", nil, &ids))
	assert.Equal(t, []string{"main"}, ids)

	var summary apimodel.DisplaySummary
	assert.Equal(t, http.StatusOK, c.json("GET", "/api/displays/main", nil, &summary))
	assert.Equal(t, "cycling", summary.ControllerType)
	assert.Equal(t, "memory", summary.StoreType)
	assert.Nil(t, summary.CurrentImageId)
	assert.Len(t, summary.Transformers, 2)

	assert.Equal(t, http.StatusNotFound, c.json("GET", "/api/displays/other", nil, nil))
}

func TestImages(t *testing.T) {
	c := newClient(t)
	b := mediatest.PNG("b", nil)
	data, err := b.Data()
	require.NoError(t, err)

	req, err := http.NewRequest("POST", c.server.URL+"/api/displays/main/images/b?rotation=90", bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("X-Image-Metadata", `{"caption":"hello"}`)
	resp, err := c.server.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = c.do("POST", "/api/displays/main/images/b", "image/png", data)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = c.do("POST", "/api/displays/main/images/c", "text/plain", data)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := c.do("GET", "/api/displays/main/images/b", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, data, body)

	var metadata map[string]interface{}
	assert.Equal(t, http.StatusOK, c.json("GET", "/api/displays/main/images/b/metadata", nil, &metadata))
	assert.Equal(t, map[string]interface{}{"caption": "hello", "rotation": float64(90)}, metadata)

	var infos []apimodel.ImageInfo
	assert.Equal(t, http.StatusOK, c.json("GET", "/api/displays/main/images", nil, &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].ImageId)
	assert.Equal(t, "PNG", infos[1].ImageType)

	resp, _ = c.do("PUT", "/api/displays/main/images/b", "image/png", data)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var replaced map[string]interface{}
	assert.Equal(t, http.StatusOK, c.json("GET", "/api/displays/main/images/b/metadata", nil, &replaced))
	assert.Empty(t, replaced)

	assert.Equal(t, http.StatusOK, c.json("DELETE", "/api/displays/main/images/b", nil, nil))
	assert.Equal(t, http.StatusNotFound, c.json("DELETE", "/api/displays/main/images/b", nil, nil))
	assert.Equal(t, http.StatusNotFound, c.json("GET", "/api/displays/main/images/b", nil, nil))
}

func TestCurrentImage(t *testing.T) {
	c := newClient(t)

	resp, _ := c.do("GET", "/api/displays/main/current", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var info apimodel.ImageInfo
	assert.Equal(t, http.StatusOK, c.json("PUT", "/api/displays/main/current", apimodel.CurrentImageUpdate{ImageId: "a"}, &info))
	assert.Equal(t, "a", info.ImageId)
	assert.Equal(t, http.StatusOK, c.json("GET", "/api/displays/main/current", nil, &info))
	assert.Equal(t, "a", info.ImageId)

	assert.Equal(t, http.StatusNotFound, c.json("PUT", "/api/displays/main/current", apimodel.CurrentImageUpdate{ImageId: "zz"}, nil))
	assert.Equal(t, http.StatusBadRequest, c.json("PUT", "/api/displays/main/current", map[string]string{"image": "a"}, nil))

	assert.Equal(t, http.StatusOK, c.json("DELETE", "/api/displays/main/current", nil, nil))
	resp, _ = c.do("GET", "/api/displays/main/current", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, http.StatusOK, c.json("POST", "/api/displays/main/next", nil, &info))
	assert.Equal(t, "a", info.ImageId)
}

func TestSleep(t *testing.T) {
	c := newClient(t)

	var state apimodel.SleepState
	assert.Equal(t, http.StatusOK, c.json("PUT", "/api/displays/main/sleep", apimodel.SleepState{Sleeping: true}, &state))
	assert.True(t, state.Sleeping)
	assert.Equal(t, http.StatusOK, c.json("GET", "/api/displays/main/sleep", nil, &state))
	assert.True(t, state.Sleeping)
	assert.Equal(t, http.StatusOK, c.json("PUT", "/api/displays/main/sleep", apimodel.SleepState{Sleeping: false}, &state))
	assert.False(t, state.Sleeping)
}

func TestTransformers(t *testing.T) {
	c := newClient(t)

	var infos []apimodel.TransformerInfo
	assert.Equal(t, http.StatusOK, c.json("GET", "/api/displays/main/transformers", nil, &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "rot", infos[0].TransformerId)
	assert.Equal(t, "turn", infos[0].Description)

	active := true
	position := 10
	var info apimodel.TransformerInfo
	assert.Equal(t, http.StatusOK, c.json("PATCH", "/api/displays/main/transformers/rot",
		apimodel.TransformerUpdate{Active: &active, Position: &position, Configuration: map[string]interface{}{"angle": 180}}, &info))
	assert.True(t, info.Active)
	assert.Equal(t, 1, info.Position)
	assert.Equal(t, float64(180), info.Configuration["angle"])

	assert.Equal(t, http.StatusOK, c.json("GET", "/api/displays/main/transformers/fit", nil, &info))
	assert.Equal(t, 0, info.Position)

	assert.Equal(t, http.StatusBadRequest, c.json("PATCH", "/api/displays/main/transformers/rot",
		apimodel.TransformerUpdate{Configuration: map[string]interface{}{"speed": 1}}, nil))
	negative := -1
	assert.Equal(t, http.StatusBadRequest, c.json("PATCH", "/api/displays/main/transformers/rot",
		apimodel.TransformerUpdate{Position: &negative}, nil))
	assert.Equal(t, http.StatusNotFound, c.json("GET", "/api/displays/main/transformers/missing", nil, nil))
}

func TestEventsStreamDisplayChanges(t *testing.T) {
	c := newClient(t)

	url := "ws" + strings.TrimPrefix(c.server.URL, "http") + "/api/displays/main/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"X-Api-Key": {apiKey}})
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var summary apimodel.DisplaySummary
	require.NoError(t, conn.ReadJSON(&summary))
	assert.Nil(t, summary.CurrentImageId)

	assert.Equal(t, http.StatusOK, c.json("PUT", "/api/displays/main/current", apimodel.CurrentImageUpdate{ImageId: "a"}, nil))
	require.NoError(t, conn.ReadJSON(&summary))
	require.NotNil(t, summary.CurrentImageId)
	assert.Equal(t, "a", *summary.CurrentImageId)
}
