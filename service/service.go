// Package service enumerates, inspects and controls Windows services and
// changes their startup type.
package service

import (
	"errors"
	"fmt"

	"github.com/dronm/gowinsvc"
)

var (
	ErrNotFound                 = errors.New("service not found")
	ErrInvalidState             = errors.New("operation not valid in current service state")
	ErrTimeout                  = errors.New("timeout waiting for service state")
	ErrAmbiguousMode            = errors.New("startup text must name exactly one of Automatic, Manual, Disabled")
	ErrDelayedRequiresAutomatic = errors.New("delayed start requires Automatic")
	ErrTriggerReadOnly          = errors.New("trigger start cannot be changed")
	ErrUnsupported              = errors.New("service control is only supported on Windows")
)

// Controller is the service control manager.
type Controller interface {
	List() ([]string, error)
	Query(name string) (Status, error)
	Config(name string) (Config, error)
	Start(name string) error
	Control(name string, cmd Command) (Status, error)
	SetDelayedAutoStart(name string, delayed bool) error
}

// Inspector reads and changes services through WMI.
type Inspector interface {
	Services() ([]gowinsvc.Win32Service, error)
	ChangeStartMode(name, mode string) (uint32, error)
}

// Probe reads startup details kept in the registry.
type Probe interface {
	DelayedAutoStart(name string) (bool, error)
	TriggerStart(name string) (bool, error)
}

// StartModeError is returned when Win32_Service.ChangeStartMode refuses
// the change.
type StartModeError struct {
	Service string
	Mode    string
	Code    uint32
}

func (e *StartModeError) Error() string {
	return fmt.Sprintf("change start mode of %s to %s: %s", e.Service, e.Mode, gowinsvc.ReturnCodeText(e.Code))
}

// WMIInspector implements Inspector over a WMI connection pool.
type WMIInspector struct {
	pool *gowinsvc.Pool
}

func NewWMIInspector(pool *gowinsvc.Pool) *WMIInspector {
	return &WMIInspector{pool: pool}
}

func (w *WMIInspector) Services() ([]gowinsvc.Win32Service, error) {
	return w.pool.QueryServices()
}

func (w *WMIInspector) ChangeStartMode(name, mode string) (uint32, error) {
	code, err := w.pool.ChangeStartMode(name, mode)
	if errors.Is(err, gowinsvc.ErrServiceNotFound) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return code, err
}
