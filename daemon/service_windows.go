//go:build windows

package daemon

import (
	"golang.org/x/sys/windows/svc"

	"github.com/dronm/gowinsvc/logger"
)

// Run hands s to the service control manager when the process was started
// by it and runs it in the console otherwise.
func Run(s Service) error {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return err
	}
	if !isService {
		return RunConsole(s)
	}

	closer, err := AttachEventLog(logger.Logger, s.Name)
	if err != nil {
		logger.Logger.Warnf("event log unavailable: %v", err)
	} else {
		defer closer.Close()
	}

	return svc.Run(s.Name, &serviceHandler{svc: s})
}

type serviceHandler struct {
	svc Service
}

func (h *serviceHandler) Execute(args []string, r <-chan svc.ChangeRequest, status chan<- svc.Status) (bool, uint32) {
	const accepts = svc.AcceptStop | svc.AcceptShutdown

	status <- svc.Status{State: svc.StartPending}

	initErr := make(chan error, 1)
	go func() {
		if h.svc.Start == nil {
			initErr <- errNoStart
			return
		}
		initErr <- h.svc.Start()
	}()

	for {
		select {
		case err := <-initErr:
			if err != nil {
				logger.Logger.Errorf("%s initialization failed: %v", h.svc.Name, err)
				status <- svc.Status{State: svc.StopPending}
				return true, 1
			}
			initErr = nil
			status <- svc.Status{State: svc.Running, Accepts: accepts}
			logger.Logger.Infof("%s running", h.svc.Name)

		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				status <- c.CurrentStatus

			case svc.Stop, svc.Shutdown:
				// stop may arrive while start is still running
				status <- svc.Status{State: svc.StopPending}
				if h.svc.Stop != nil {
					if err := h.svc.Stop(); err != nil {
						logger.Logger.Errorf("%s stop: %v", h.svc.Name, err)
					}
				}
				return false, 0

			default:
				logger.Logger.Warnf("unexpected control request #%d", c.Cmd)
			}
		}
	}
}
