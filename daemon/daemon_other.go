//go:build !windows

package daemon

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"
)

var errWindowsOnly = errors.New("windows service mode is only supported on Windows")

// Run runs s in the console.
func Run(s Service) error {
	return RunConsole(s)
}

func Install(Service) error {
	return errors.New("service install is only supported on Windows")
}

func Uninstall(string) error {
	return errors.New("service uninstall is only supported on Windows")
}

func AttachEventLog(*logrus.Logger, string) (io.Closer, error) {
	return nil, errWindowsOnly
}
