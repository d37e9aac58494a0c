//go:build !windows

package service

// SCM implements Controller. Outside Windows every call fails with
// ErrUnsupported.
type SCM struct{}

func NewSCM() *SCM {
	return &SCM{}
}

func (SCM) List() ([]string, error)                 { return nil, ErrUnsupported }
func (SCM) Query(string) (Status, error)            { return Status{}, ErrUnsupported }
func (SCM) Config(string) (Config, error)           { return Config{}, ErrUnsupported }
func (SCM) Start(string) error                      { return ErrUnsupported }
func (SCM) Control(string, Command) (Status, error) { return Status{}, ErrUnsupported }
func (SCM) SetDelayedAutoStart(string, bool) error  { return ErrUnsupported }

// RegistryProbe implements Probe. Outside Windows every call fails with
// ErrUnsupported.
type RegistryProbe struct{}

func NewRegistryProbe() *RegistryProbe {
	return &RegistryProbe{}
}

func (RegistryProbe) DelayedAutoStart(string) (bool, error) { return false, ErrUnsupported }
func (RegistryProbe) TriggerStart(string) (bool, error)     { return false, ErrUnsupported }
