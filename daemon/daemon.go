// Package daemon runs a server as a Windows service or in the console and
// installs or removes the service registration.
package daemon

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/dronm/gowinsvc/logger"
)

// Service describes a server hosted by the service control manager.
type Service struct {
	Name        string
	DisplayName string
	Description string
	// Args are passed to the executable when the SCM starts it.
	Args  []string
	Start func() error
	Stop  func() error
}

var errNoStart = errors.New("daemon: service has no start function")

// RunConsole starts the server and blocks until interrupted.
func RunConsole(s Service) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runUntil(ctx, s)
}

func runUntil(ctx context.Context, s Service) error {
	if s.Start == nil {
		return errNoStart
	}
	if err := s.Start(); err != nil {
		return err
	}
	logger.Logger.Infof("%s running, press Ctrl+C to stop", s.Name)

	<-ctx.Done()

	logger.Logger.Infof("%s stopping", s.Name)
	if s.Stop == nil {
		return nil
	}
	return s.Stop()
}
