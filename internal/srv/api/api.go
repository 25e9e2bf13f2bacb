// Package api exposes the displays of an application over REST.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/config"
	"github.com/jypelle/papier/internal/srv/controller"
	"github.com/jypelle/papier/internal/srv/storage"
	"github.com/jypelle/papier/internal/tool"
	"github.com/sirupsen/logrus"
)

type Api struct {
	storage   *storage.AppStorage
	param     config.ApiParam
	configDir string

	router    *mux.Router
	apiRouter *mux.Router
	server    *http.Server
	upgrader  websocket.Upgrader

	closing chan struct{}
}

func NewApi(appStorage *storage.AppStorage, param config.ApiParam, configDir string) *Api {
	api := &Api{
		storage:   appStorage,
		param:     param,
		configDir: configDir,
		closing:   make(chan struct{}),
	}

	api.router = mux.NewRouter().StrictSlash(false)

	// API Routes
	api.apiRouter = api.router.PathPrefix("/api").Subrouter()
	api.apiRouter.NotFoundHandler = http.HandlerFunc(ErrorNotFoundAction)
	api.apiRouter.MethodNotAllowedHandler = http.HandlerFunc(ErrorMethodNotAllowedAction)

	// Auth middleware
	api.apiRouter.Use(
		func(handler http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				defer func() {
					if rec := recover(); rec != nil {
						logrus.Warningf("recovered from panic : [%v] - stack trace : \n [%s]", rec, debug.Stack())
						GlobalErrorAction(w, fmt.Sprintf("%v", rec), http.StatusInternalServerError)
					}
				}()

				// Check API Key
				apiKey := r.Header.Get("x-api-key")
				if apiKey != param.ApiKey {
					ErrorStatusAction(w, r, http.StatusForbidden)
					return
				}

				logrus.Debugf("PATH: %s %s %s", r.Method, r.Host, r.URL.Path)

				handler.ServeHTTP(w, r)
			})
		})

	// Create server check endpoint
	api.apiRouter.HandleFunc("/is_alive",
		func(w http.ResponseWriter, r *http.Request) {
			ErrorStatusAction(w, r, http.StatusOK)
		}).Methods("GET")

	api.apiRouter.HandleFunc("/displays", api.listDisplays).Methods("GET")

	display := api.apiRouter.PathPrefix("/displays/{display_id}").Subrouter()
	display.HandleFunc("", api.read(getDisplay)).Methods("GET")
	display.HandleFunc("/current", api.read(getCurrentImage)).Methods("GET")
	display.HandleFunc("/current", api.update(setCurrentImage)).Methods("PUT")
	display.HandleFunc("/current", api.update(clearCurrentImage)).Methods("DELETE")
	display.HandleFunc("/next", api.update(displayNextImage)).Methods("POST")
	display.HandleFunc("/images", api.read(listImages)).Methods("GET")
	display.HandleFunc("/images/{image_id}", api.read(getImage)).Methods("GET")
	display.HandleFunc("/images/{image_id}", api.update(createImage)).Methods("POST")
	display.HandleFunc("/images/{image_id}", api.update(replaceImage)).Methods("PUT")
	display.HandleFunc("/images/{image_id}", api.update(deleteImage)).Methods("DELETE")
	display.HandleFunc("/images/{image_id}/metadata", api.read(getImageMetadata)).Methods("GET")
	display.HandleFunc("/sleep", api.read(getSleepState)).Methods("GET")
	display.HandleFunc("/sleep", api.update(setSleepState)).Methods("PUT")
	display.HandleFunc("/transformers", api.read(listTransformers)).Methods("GET")
	display.HandleFunc("/transformers/{transformer_id}", api.read(getTransformer)).Methods("GET")
	display.HandleFunc("/transformers/{transformer_id}", api.update(updateTransformer)).Methods("PATCH")
	display.HandleFunc("/events", api.events).Methods("GET")

	// Tell the browser that it's OK for JS to communicate with the server
	headersOk := handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "X-Api-Key", "X-Image-Metadata"})
	originsOk := handlers.AllowedOrigins([]string{"*"})
	methodsOk := handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})

	api.server = &http.Server{
		Addr:         ":" + strconv.FormatInt(param.Port, 10),
		Handler:      handlers.CORS(originsOk, headersOk, methodsOk)(compress(api.router)),
		ReadTimeout:  time.Second * 240,
		WriteTimeout: time.Second * 240,
		IdleTimeout:  time.Second * 240,
	}

	return api
}

// compress leaves websocket upgrades alone: the gzip writer cannot be hijacked.
func compress(handler http.Handler) http.Handler {
	compressed := handlers.CompressHandler(handler)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			handler.ServeHTTP(w, r)
			return
		}
		compressed.ServeHTTP(w, r)
	})
}

func (a *Api) Handler() http.Handler {
	return a.server.Handler
}

func (a *Api) Start() error {
	logrus.Infof("Start api on port %d", a.param.Port)

	if !a.param.Tls {
		go func() {
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.Error(err)
			}
		}()
		return nil
	}

	hostnames := []string{"localhost", "127.0.0.1", "::1"}
	if hostname, err := os.Hostname(); err == nil {
		hostnames = append(hostnames, hostname)
	}
	generated, err := tool.EnsureTlsCertificate("papier", "Papier Server", a.selfSignedKeyFilename(), a.selfSignedCertFilename(), hostnames...)
	if err != nil {
		return fmt.Errorf("unable to prepare cert and key files: %w", err)
	}
	if generated {
		logrus.Info("Self-signed cert and key files generated")
	}

	// Launch https server
	go func() {
		err := a.server.ListenAndServeTLS(a.selfSignedCertFilename(), a.selfSignedKeyFilename())
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Error(err)
		}
	}()
	return nil
}

func (a *Api) Stop() {
	logrus.Infof("Stop api")
	close(a.closing)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		logrus.Warnf("Unable to shutdown api: %v", err)
	}
}

func (a *Api) selfSignedKeyFilename() string {
	return filepath.Join(a.configDir, "key.pem")
}

func (a *Api) selfSignedCertFilename() string {
	return filepath.Join(a.configDir, "cert.pem")
}

type controllerAction func(w http.ResponseWriter, r *http.Request, c controller.Controller) error

// read runs action with shared access to the display of the request. Actions return their error
// before writing anything.
func (a *Api) read(action controllerAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := a.storage.UseDisplayController(mux.Vars(r)["display_id"], func(c controller.Controller) error {
			return action(w, r, c)
		})
		if err != nil {
			ErrorAction(w, err)
		}
	}
}

// update runs action with exclusive access to the display of the request.
func (a *Api) update(action controllerAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := a.storage.UpdateDisplayController(mux.Vars(r)["display_id"], func(c controller.Controller) error {
			return action(w, r, c)
		})
		if err != nil {
			ErrorAction(w, err)
		}
	}
}

func ErrorNotFoundAction(w http.ResponseWriter, r *http.Request) {
	ErrorStatusAction(w, r, http.StatusNotFound)
}

func ErrorMethodNotAllowedAction(w http.ResponseWriter, r *http.Request) {
	ErrorStatusAction(w, r, http.StatusMethodNotAllowed)
}

func ErrorStatusAction(w http.ResponseWriter, r *http.Request, status int) {
	GlobalErrorAction(w, "", status)
}

func GlobalErrorAction(w http.ResponseWriter, message string, status int) {
	apimodel.ErrorMessage{ErrStatusCode: status, ErrMessage: message}.SendError(w)
}

// ErrorAction answers with the status matching the kind of err.
func ErrorAction(w http.ResponseWriter, err error) {
	logrus.Debugf("Request failed: %v", err)
	apimodel.NewErrorMessage(err).SendError(w)
}
