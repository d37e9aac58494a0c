//go:build windows

package daemon

import (
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows/svc/eventlog"
)

const eventID = 1

// eventLogHook copies warnings and errors to the Windows event log.
type eventLogHook struct {
	log *eventlog.Log
}

// AttachEventLog adds a hook writing warnings and errors of l to the event
// log source name. Closing the returned value closes the event log.
func AttachEventLog(l *logrus.Logger, name string) (io.Closer, error) {
	el, err := eventlog.Open(name)
	if err != nil {
		return nil, err
	}
	l.AddHook(&eventLogHook{log: el})
	return el, nil
}

func (h *eventLogHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

func (h *eventLogHook) Fire(e *logrus.Entry) error {
	msg, err := e.String()
	if err != nil {
		msg = e.Message
	}
	switch e.Level {
	case logrus.WarnLevel:
		return h.log.Warning(eventID, msg)
	default:
		return h.log.Error(eventID, msg)
	}
}
