//go:build windows

package service

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// SCM implements Controller with the local service control manager.
type SCM struct{}

func NewSCM() *SCM {
	return &SCM{}
}

func (SCM) open(name string, fn func(s *mgr.Service) error) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		if errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("open service %s: %w", name, err)
	}
	defer s.Close()

	return fn(s)
}

func (SCM) List() ([]string, error) {
	m, err := mgr.Connect()
	if err != nil {
		return nil, fmt.Errorf("connect to service manager: %w", err)
	}
	defer m.Disconnect()

	return m.ListServices()
}

func (c SCM) Query(name string) (Status, error) {
	var st Status
	err := c.open(name, func(s *mgr.Service) error {
		q, err := s.Query()
		if err != nil {
			return err
		}
		st = fromSvcStatus(q)
		return nil
	})
	return st, err
}

func (c SCM) Config(name string) (Config, error) {
	var cfg Config
	err := c.open(name, func(s *mgr.Service) error {
		mc, err := s.Config()
		if err != nil {
			return err
		}
		cfg = Config{
			DisplayName:      mc.DisplayName,
			Description:      mc.Description,
			BinaryPath:       mc.BinaryPathName,
			StartName:        mc.ServiceStartName,
			StartType:        mc.StartType,
			ServiceType:      Type(mc.ServiceType),
			DelayedAutoStart: mc.DelayedAutoStart,
			Dependencies:     mc.Dependencies,
		}
		return nil
	})
	return cfg, err
}

func (c SCM) Start(name string) error {
	return c.open(name, func(s *mgr.Service) error {
		return s.Start()
	})
}

func (c SCM) Control(name string, cmd Command) (Status, error) {
	var st Status
	err := c.open(name, func(s *mgr.Service) error {
		q, err := s.Control(svc.Cmd(cmd))
		if err != nil {
			return err
		}
		st = fromSvcStatus(q)
		return nil
	})
	return st, err
}

func (c SCM) SetDelayedAutoStart(name string, delayed bool) error {
	return c.open(name, func(s *mgr.Service) error {
		mc, err := s.Config()
		if err != nil {
			return err
		}
		mc.DelayedAutoStart = delayed
		return s.UpdateConfig(mc)
	})
}

func fromSvcStatus(q svc.Status) Status {
	return Status{
		State:     State(q.State),
		Accepts:   Accept(q.Accepts),
		ProcessID: q.ProcessId,
	}
}
