package service

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dronm/gowinsvc"
)

type fakeService struct {
	cfg     Config
	status  Status
	delayed bool
	trigger bool
}

// fakeSCM applies every transition immediately.
type fakeSCM struct {
	mu       sync.Mutex
	services map[string]*fakeService
	calls    []string
	// stuck keeps Control from changing the state
	stuck bool
}

func newFakeSCM() *fakeSCM {
	return &fakeSCM{services: map[string]*fakeService{
		"Spooler": {
			cfg:    Config{DisplayName: "Print Spooler", BinaryPath: `C:\Windows\System32\spoolsv.exe`, StartName: "LocalSystem", StartType: 2, ServiceType: OwnProcess + Interactive},
			status: Status{State: Running, Accepts: AcceptStop | AcceptShutdown, ProcessID: 1200},
		},
		"wuauserv": {
			cfg:     Config{DisplayName: "Windows Update", StartType: 3, ServiceType: ShareProcess},
			status:  Status{State: Stopped},
			trigger: true,
		},
		"BITS": {
			cfg:     Config{DisplayName: "Background Intelligent Transfer Service", StartType: 2, ServiceType: ShareProcess},
			status:  Status{State: Paused, Accepts: AcceptStop | AcceptPauseContinue},
			delayed: true,
		},
		"Fax": {
			cfg:    Config{DisplayName: "Fax", StartType: 4, ServiceType: OwnProcess},
			status: Status{State: StartPending},
		},
	}}
}

func (f *fakeSCM) get(name string) (*fakeService, error) {
	s, ok := f.services[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s, nil
}

func (f *fakeSCM) List() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.services))
	for n := range f.services {
		names = append(names, n)
	}
	return names, nil
}

func (f *fakeSCM) Query(name string) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.get(name)
	if err != nil {
		return Status{}, err
	}
	return s.status, nil
}

func (f *fakeSCM) Config(name string) (Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.get(name)
	if err != nil {
		return Config{}, err
	}
	return s.cfg, nil
}

func (f *fakeSCM) Start(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.get(name)
	if err != nil {
		return err
	}
	f.calls = append(f.calls, "start "+name)
	s.status.State = Running
	return nil
}

func (f *fakeSCM) Control(name string, cmd Command) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.get(name)
	if err != nil {
		return Status{}, err
	}
	switch cmd {
	case CmdStop:
		f.calls = append(f.calls, "stop "+name)
		if !f.stuck {
			s.status.State = Stopped
		}
	case CmdContinue:
		f.calls = append(f.calls, "continue "+name)
		if !f.stuck {
			s.status.State = Running
		}
	case CmdPause:
		f.calls = append(f.calls, "pause "+name)
		s.status.State = Paused
	}
	return s.status, nil
}

func (f *fakeSCM) SetDelayedAutoStart(name string, delayed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.get(name)
	if err != nil {
		return err
	}
	f.calls = append(f.calls, fmt.Sprintf("delayed %s %t", name, delayed))
	s.cfg.DelayedAutoStart = delayed
	s.delayed = delayed
	return nil
}

func (f *fakeSCM) DelayedAutoStart(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.get(name)
	if err != nil {
		return false, err
	}
	return s.delayed && s.cfg.StartType == 2, nil
}

func (f *fakeSCM) TriggerStart(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.get(name)
	if err != nil {
		return false, err
	}
	return s.trigger, nil
}

var wmiModes = map[uint32]string{2: "Auto", 3: "Manual", 4: "Disabled"}

func (f *fakeSCM) Services() ([]gowinsvc.Win32Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []gowinsvc.Win32Service
	for n, s := range f.services {
		list = append(list, gowinsvc.Win32Service{
			Name:             n,
			DisplayName:      s.cfg.DisplayName,
			StartMode:        wmiModes[s.cfg.StartType],
			State:            s.status.State.String(),
			DelayedAutoStart: s.delayed,
		})
	}
	return list, nil
}

// refuse makes ChangeStartMode return this WMI code when non-zero.
var refuse uint32

func (f *fakeSCM) ChangeStartMode(name, mode string) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.get(name)
	if err != nil {
		return 0, err
	}
	f.calls = append(f.calls, "mode "+name+" "+mode)
	if refuse != 0 {
		return refuse, nil
	}
	switch mode {
	case "Automatic":
		s.cfg.StartType = 2
	case "Manual":
		s.cfg.StartType = 3
	case "Disabled":
		s.cfg.StartType = 4
	default:
		return 21, nil
	}
	return 0, nil
}

func newTestManager() (*Manager, *fakeSCM) {
	f := newFakeSCM()
	log := logrus.New()
	log.SetOutput(io.Discard)
	m := NewManager(f, f, f, log, Options{WaitTimeout: 50 * time.Millisecond, PollInterval: time.Millisecond})
	return m, f
}
