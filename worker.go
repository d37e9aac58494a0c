package gowinsvc

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// sFalse is returned by CoInitializeEx when the thread is already initialized.
const sFalse = 0x00000001

var errConnClosed = errors.New("wmi connection closed")

// wmiWorker owns the COM apartment of one connection. COM objects must be
// used from the thread that created them, so every call is funneled
// through c.commands.
func (c *Connection) wmiWorker(cfg *Config, ready chan<- error, logger Logger) {
	defer c.wg.Done()
	defer close(c.done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		if oleErr, ok := err.(*ole.OleError); !ok || oleErr.Code() != sFalse {
			ready <- fmt.Errorf("CoInitializeEx failed: %w", err)
			return
		}
	}
	defer ole.CoUninitialize()

	logger.Debugf("initializing COM: %s", cfg.COMObjectID)

	unknown, err := oleutil.CreateObject(cfg.COMObjectID)
	if err != nil {
		ready <- fmt.Errorf("create %s failed: %w", cfg.COMObjectID, err)
		return
	}
	defer unknown.Release()

	locator, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		ready <- fmt.Errorf("QueryInterface failed: %w", err)
		return
	}
	defer locator.Release()

	logger.Debugf("connecting to WMI %s on %s", cfg.Namespace, cfg.Server)

	servicesRaw, err := oleutil.CallMethod(locator, "ConnectServer", cfg.Server, cfg.Namespace, cfg.User, cfg.Password)
	if err != nil {
		ready <- fmt.Errorf("ConnectServer failed: %w", err)
		return
	}
	c.services = servicesRaw.ToIDispatch()
	// the dispatch is released by cleanup, not by clearing the variant

	logger.Infof("WMI connection %d initialized successfully", c.id)
	ready <- nil

	for {
		select {
		case fn := <-c.commands:
			fn()
		case <-c.quit:
			logger.Debugf("WMI connection %d worker shutting down", c.id)
			c.cleanup()
			return
		}
	}
}

func (c *Connection) cleanup() {
	if c.services != nil {
		c.services.Release()
		c.services = nil
	}
}
