package service

import (
	"fmt"
	"sync"

	"github.com/dronm/gowinsvc/flagcodec"
)

// State is the SCM current state of a service.
type State uint32

const (
	Stopped State = iota + 1
	StartPending
	StopPending
	Running
	ContinuePending
	PausePending
	Paused
)

var stateNames = map[State]string{
	Stopped:         "Stopped",
	StartPending:    "StartPending",
	StopPending:     "StopPending",
	Running:         "Running",
	ContinuePending: "ContinuePending",
	PausePending:    "PausePending",
	Paused:          "Paused",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// Accept is the set of controls a service accepts.
type Accept uint32

const (
	AcceptStop Accept = 1 << iota
	AcceptPauseContinue
	AcceptShutdown
	AcceptParamChange
	AcceptNetBindChange
	AcceptHardwareProfileChange
	AcceptPowerEvent
	AcceptSessionChange
	AcceptPreShutdown
)

var acceptTable = sync.OnceValue(func() *flagcodec.Table[Accept] {
	return flagcodec.NewTable("accepted control", flagcodec.Flags,
		flagcodec.Entry[Accept]{Value: AcceptStop, Aliases: []string{"Stop"}},
		flagcodec.Entry[Accept]{Value: AcceptPauseContinue, Aliases: []string{"PauseContinue", "Pause"}},
		flagcodec.Entry[Accept]{Value: AcceptShutdown, Aliases: []string{"Shutdown"}},
		flagcodec.Entry[Accept]{Value: AcceptParamChange, Aliases: []string{"ParamChange"}},
		flagcodec.Entry[Accept]{Value: AcceptNetBindChange, Aliases: []string{"NetBindChange"}},
		flagcodec.Entry[Accept]{Value: AcceptHardwareProfileChange, Aliases: []string{"HardwareProfileChange"}},
		flagcodec.Entry[Accept]{Value: AcceptPowerEvent, Aliases: []string{"PowerEvent"}},
		flagcodec.Entry[Accept]{Value: AcceptSessionChange, Aliases: []string{"SessionChange"}},
		flagcodec.Entry[Accept]{Value: AcceptPreShutdown, Aliases: []string{"PreShutdown"}},
	)
})

func (a Accept) String() string {
	if a == 0 {
		return "None"
	}
	return acceptTable().RenderFlags(a)
}

// Type is the SCM service type. Values combine additively, e.g.
// OwnProcess + Interactive.
type Type uint32

const (
	KernelDriver        Type = 0x1
	FileSystemDriver    Type = 0x2
	Adapter             Type = 0x4
	RecognizerDriver    Type = 0x8
	OwnProcess          Type = 0x10
	ShareProcess        Type = 0x20
	UserService         Type = 0x40
	UserServiceInstance Type = 0x80
	Interactive         Type = 0x100
)

var typeTable = sync.OnceValue(func() *flagcodec.Table[Type] {
	return flagcodec.NewTable("service type", flagcodec.Number,
		flagcodec.Entry[Type]{Value: Interactive, Aliases: []string{"Interactive", "InteractiveProcess"}},
		flagcodec.Entry[Type]{Value: UserServiceInstance, Aliases: []string{"UserServiceInstance"}},
		flagcodec.Entry[Type]{Value: UserService, Aliases: []string{"UserService"}},
		flagcodec.Entry[Type]{Value: ShareProcess, Aliases: []string{"ShareProcess", "Shared"}},
		flagcodec.Entry[Type]{Value: OwnProcess, Aliases: []string{"OwnProcess", "Own"}},
		flagcodec.Entry[Type]{Value: RecognizerDriver, Aliases: []string{"RecognizerDriver"}},
		flagcodec.Entry[Type]{Value: Adapter, Aliases: []string{"Adapter"}},
		flagcodec.Entry[Type]{Value: FileSystemDriver, Aliases: []string{"FileSystemDriver"}},
		flagcodec.Entry[Type]{Value: KernelDriver, Aliases: []string{"KernelDriver", "Kernel"}},
	)
})

func (t Type) String() string {
	return typeTable().RenderNumber(t)
}

// ParseType reads a service type such as "OwnProcess, Interactive".
func ParseType(text string) (Type, error) {
	return typeTable().Parse(text)
}

// Command is a control code sent to a running service.
type Command uint32

const (
	CmdStop        Command = 1
	CmdPause       Command = 2
	CmdContinue    Command = 3
	CmdInterrogate Command = 4
)

// Status is the live state reported by the SCM.
type Status struct {
	State     State
	Accepts   Accept
	ProcessID uint32
}

// Config is the SCM configuration of a service.
type Config struct {
	DisplayName      string
	Description      string
	BinaryPath       string
	StartName        string
	StartType        uint32
	ServiceType      Type
	DelayedAutoStart bool
	Dependencies     []string
}
