package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dronm/gowinsvc/daemon"
	"github.com/dronm/gowinsvc/http/config"
	"github.com/dronm/gowinsvc/logger"
)

func main() {
	serviceCmd := flag.String("service", "", "install | uninstall | run")
	serviceName := flag.String("service-name", "GoWinSvcHTTP", "Windows service name")
	flag.Parse()

	app := &ServiceApp{}
	svc := daemon.Service{
		Name:        *serviceName,
		DisplayName: "Go Windows Service Manager HTTP API",
		Description: "HTTP API for listing, controlling and configuring Windows services",
		Args:        []string{"-service", "run", "-service-name", *serviceName},
		Start:       app.Start,
		Stop:        app.Stop,
	}

	switch *serviceCmd {
	case "install":
		if err := daemon.Install(svc); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("Service installed")
		return

	case "uninstall":
		if err := daemon.Uninstall(*serviceName); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("Service uninstalled")
		return
	}

	run := daemon.RunConsole
	if *serviceCmd == "run" {
		run = daemon.Run
	}
	if err := run(svc); err != nil {
		logger.Logger.Errorf("%s: %v", *serviceName, err)
		os.Exit(1)
	}
}

type ServiceApp struct {
	cfg *config.Config
	srv *Server
}

func (app *ServiceApp) Start() error {
	// Lazy initialization
	if app.cfg == nil {
		exeDir, err := getExecutableDir()
		if err != nil {
			return fmt.Errorf("failed to get executable directory: %v", err)
		}
		configPath := filepath.Join(exeDir, "config.json")

		cfg := &config.Config{}
		if err := cfg.ReadConf(configPath); err != nil {
			return fmt.Errorf("failed to read config: %v", err)
		}
		app.cfg = cfg

		var logFileName string
		if cfg.LogToFile {
			logDir := cfg.LogDir
			if !filepath.IsAbs(logDir) {
				logDir = filepath.Join(exeDir, logDir)
			}
			logFileName = logger.DailyFileName(logDir, config.DefLogFilePrefix, time.Now())
		}
		if err := logger.InitializeFormat(logger.LoggerLogLevel(cfg.LogLevel), logger.Format(cfg.LogFormat), logFileName); err != nil {
			return fmt.Errorf("failed to initialize logger: %v", err)
		}

		app.srv = NewServer(cfg)
	}

	return app.srv.Start()
}

func (app *ServiceApp) Stop() error {
	if app.srv != nil {
		return app.srv.Stop()
	}
	return nil
}

func getExecutableDir() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exePath), nil
}
