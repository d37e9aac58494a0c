//go:build windows

package daemon

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows/svc/eventlog"
	"golang.org/x/sys/windows/svc/mgr"
)

// Install registers the running executable as an automatic start service
// and creates its event log source.
func Install(s Service) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	m, err := mgr.Connect()
	if err != nil {
		return err
	}
	defer m.Disconnect()

	existing, err := m.OpenService(s.Name)
	if err == nil {
		existing.Close()
		return fmt.Errorf("service %s already exists", s.Name)
	}

	display := s.DisplayName
	if display == "" {
		display = s.Name
	}

	created, err := m.CreateService(
		s.Name,
		exe,
		mgr.Config{
			DisplayName: display,
			Description: s.Description,
			StartType:   mgr.StartAutomatic,
		},
		s.Args...,
	)
	if err != nil {
		return err
	}
	defer created.Close()

	if err := eventlog.InstallAsEventCreate(s.Name, eventlog.Info|eventlog.Warning|eventlog.Error); err != nil {
		created.Delete()
		return fmt.Errorf("install event log source: %w", err)
	}
	return nil
}

// Uninstall removes the service and its event log source.
func Uninstall(name string) error {
	m, err := mgr.Connect()
	if err != nil {
		return err
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return fmt.Errorf("service %s is not installed: %w", name, err)
	}
	defer s.Close()

	if err := s.Delete(); err != nil {
		return err
	}
	if err := eventlog.Remove(name); err != nil {
		return fmt.Errorf("remove event log source: %w", err)
	}
	return nil
}
