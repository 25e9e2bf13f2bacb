package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jypelle/papier/internal/srv"
	"github.com/jypelle/papier/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const configSuffix = "papier"

var (
	debugMode      bool
	simulationMode bool
	configDir      string
)

var rootCmd = &cobra.Command{
	Use:   "papiersrv",
	Short: "An e-paper display server",
	Long:  `papiersrv drives e-paper panels: it stores images, transforms them and keeps each panel showing the selected one.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugMode {
			logrus.SetLevel(logrus.DebugLevel)
			logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true, FullTimestamp: true, TimestampFormat: time.RFC3339Nano})
			logrus.Printf("Debug mode activated")
		}
	},
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		serverApp, err := srv.NewServerApp(configDir, debugMode, simulationMode)
		if err != nil {
			return err
		}

		// Listen stop signal
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP, syscall.SIGUSR1)

		if err := serverApp.Start(); err != nil {
			serverApp.Stop(false)
			return err
		}

		sig := <-ch
		logrus.Infof("Received signal: %v", sig)
		serverApp.Stop(sig == syscall.SIGUSR1)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the version number",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Version %s\n", version.AppVersion.String())
	},
}

func init() {
	// Logger
	logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true})

	defaultConfigDir := "./." + configSuffix
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		defaultConfigDir = filepath.Join(userConfigDir, configSuffix)
	}

	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "Enable debug mode")
	rootCmd.PersistentFlags().BoolVarP(&simulationMode, "simulation", "s", false, "Enable simulation mode")
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", defaultConfigDir, "Location of papier config folder")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
