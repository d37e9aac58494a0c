//go:build windows

package service

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// RegistryProbe implements Probe over the service keys under
// HKLM\SYSTEM\CurrentControlSet\Services.
type RegistryProbe struct{}

func NewRegistryProbe() *RegistryProbe {
	return &RegistryProbe{}
}

func (RegistryProbe) DelayedAutoStart(name string) (bool, error) {
	hive, path := serviceKey(name)
	k, err := registry.OpenKey(registry.Key(hive), path, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return false, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return false, err
	}
	defer k.Close()

	start, _, err := k.GetIntegerValue("Start")
	if err != nil {
		return false, nil
	}
	delayed, _, err := k.GetIntegerValue("DelayedAutostart")
	if err != nil {
		return false, nil
	}
	return start == 2 && delayed == 1, nil
}

func (RegistryProbe) TriggerStart(name string) (bool, error) {
	hive, path := serviceKey(name)
	k, err := registry.OpenKey(registry.Key(hive), path+`\TriggerInfo`, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	k.Close()
	return true, nil
}
