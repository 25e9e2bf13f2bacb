package srv

import (
	"fmt"
	"net"
	"os/exec"

	"github.com/jypelle/papier/internal/srv/api"
	"github.com/jypelle/papier/internal/srv/config"
	"github.com/jypelle/papier/internal/srv/controller"
	"github.com/jypelle/papier/internal/srv/proxy"
	"github.com/jypelle/papier/internal/srv/storage"
	"github.com/jypelle/papier/internal/version"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

type ServerApp struct {
	*config.ServerConfig
	storage  *storage.AppStorage
	displays []*display

	api         *api.Api
	proxyServer *grpc.Server
	proxyAddr   net.Addr
}

func NewServerApp(configDir string, debugMode bool, simulationMode bool) (*ServerApp, error) {
	logrus.Debugf("Creation of papier server %s ...", version.AppVersion.String())

	serverConfig, err := config.NewServerConfig(configDir, debugMode, simulationMode)
	if err != nil {
		return nil, err
	}
	app := &ServerApp{
		ServerConfig: serverConfig,
		storage:      storage.NewAppStorage(),
	}

	for _, param := range serverConfig.DisplayParams {
		d, err := newDisplay(serverConfig, app.storage, param)
		if err != nil {
			app.closeDisplays()
			return nil, err
		}
		app.displays = append(app.displays, d)
	}
	err = app.storage.UpdateDisplayControllers(func(controllers map[string]controller.Controller) error {
		for _, d := range app.displays {
			controllers[d.id] = d.controller
		}
		return nil
	})
	if err != nil {
		app.closeDisplays()
		return nil, err
	}

	if serverConfig.ApiParam.Enabled {
		app.api = api.NewApi(app.storage, serverConfig.ApiParam, serverConfig.ConfigDir)
	}

	logrus.Debugln("Server created")
	return app, nil
}

func (s *ServerApp) Storage() *storage.AppStorage {
	return s.storage
}

// ProxyAddr is the address the proxy listens on, nil when disabled or not started.
func (s *ServerApp) ProxyAddr() net.Addr {
	return s.proxyAddr
}

func (s *ServerApp) Start() error {
	logrus.Printf("Starting papier server ...")

	var g errgroup.Group
	for _, d := range s.displays {
		g.Go(func() error {
			return d.start(s.storage, s.ServerState)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if s.ProxyParam.Enabled {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.ProxyParam.Port))
		if err != nil {
			return fmt.Errorf("unable to listen for proxy clients: %w", err)
		}
		s.proxyServer = grpc.NewServer()
		proxy.RegisterGrpcReceiver(s.proxyServer, proxy.NewReceiver(s.storage))
		s.proxyAddr = listener.Addr()
		logrus.Infof("Proxy listening on %s", s.proxyAddr)
		go func() {
			if err := s.proxyServer.Serve(listener); err != nil {
				logrus.Warnf("Proxy server stopped: %v", err)
			}
		}()
	}

	if s.api != nil {
		if err := s.api.Start(); err != nil {
			return err
		}
	}

	logrus.Printf("Server started with %d display(s)", len(s.displays))
	return nil
}

func (s *ServerApp) Stop(halt bool) {
	logrus.Printf("Stopping papier server ...")

	if s.api != nil {
		s.api.Stop()
	}
	if s.proxyServer != nil {
		s.proxyServer.GracefulStop()
		s.proxyServer = nil
	}

	var g errgroup.Group
	for _, d := range s.displays {
		g.Go(func() error {
			d.stop()
			return nil
		})
	}
	_ = g.Wait()
	s.displays = nil

	// Flush state backup
	s.ServerState.FlushSave()

	logrus.Printf("Server stopped")

	if halt {
		logrus.Printf("System halt")
		haltCmd := exec.Command("sudo", "halt")
		if err := haltCmd.Run(); err != nil {
			logrus.Errorf("Unable to halt the system: %v", err)
		}
	}
}

func (s *ServerApp) closeDisplays() {
	for _, d := range s.displays {
		d.close()
	}
	s.displays = nil
}
