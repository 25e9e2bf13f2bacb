package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/controller"
	"github.com/jypelle/papier/internal/srv/event"
	"github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

// events streams the display summary over a websocket: once on connection, then after every display change.
func (a *Api) events(w http.ResponseWriter, r *http.Request) {
	displayId := mux.Vars(r)["display_id"]

	var listenable controller.Listenable
	err := a.storage.UseDisplayController(displayId, func(c controller.Controller) error {
		var ok bool
		if listenable, ok = controller.Find[controller.Listenable](c); !ok {
			return apimodel.InvalidArgumentf("display %s does not publish its changes", displayId)
		}
		return nil
	})
	if err != nil {
		ErrorAction(w, err)
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("Unable to upgrade events connection: %v", err)
		return
	}
	defer conn.Close()

	changed := make(chan struct{}, 1)
	listener := event.ListenerFunc(func(ev controller.Event) error {
		select {
		case changed <- struct{}{}:
		default:
		}
		return nil
	})
	if err := listenable.AddListener(listener, controller.DisplayChangeEvent); err != nil {
		logrus.Warnf("Unable to listen to display %s: %v", displayId, err)
		return
	}
	defer listenable.RemoveListener(listener, controller.DisplayChangeEvent)

	// Client messages are ignored, reading only detects the close
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log := logrus.WithField("display", displayId)
	log.Debugf("Events client connected from %s", r.RemoteAddr)
	for {
		var summary *apimodel.DisplaySummary
		err := a.storage.UseDisplayController(displayId, func(c controller.Controller) error {
			var err error
			summary, err = controller.Summarize(c)
			return err
		})
		if err != nil {
			log.Warnf("Unable to summarize display: %v", err)
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(summary); err != nil {
			log.Debugf("Events client gone: %v", err)
			return
		}

		select {
		case <-changed:
		case <-gone:
			log.Debugf("Events client disconnected")
			return
		case <-a.closing:
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return
		}
	}
}
