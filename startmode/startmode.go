// Package startmode holds the alias tables for Windows service startup types.
package startmode

import (
	"strings"
	"sync"

	"github.com/dronm/gowinsvc/flagcodec"
)

// Mode is a set of startup flags. Exactly one of Automatic, Manual and
// Disabled describes the start type; Delayed and Trigger qualify it.
type Mode uint32

const (
	Automatic Mode = 1 << iota
	Manual
	Disabled
	Delayed
	Trigger
)

// ModeMask selects the start type bits.
const ModeMask = Automatic | Manual | Disabled

// SCM start type values.
const (
	startTypeAutomatic uint32 = 2
	startTypeManual    uint32 = 3
	startTypeDisabled  uint32 = 4
)

var modeEntries = []flagcodec.Entry[Mode]{
	{Value: Automatic, Aliases: []string{"Automatic", "Auto"}},
	{Value: Manual, Aliases: []string{"Manual", "Manualy", "Man"}},
	{Value: Disabled, Aliases: []string{"Disabled", "Disable", "Dis"}},
}

var optionEntries = []flagcodec.Entry[Mode]{
	{Value: Delayed, Aliases: []string{"Delayed", "DelayedAuto", "Delay"}},
	{Value: Trigger, Aliases: []string{"Trigger", "Triggered", "TriggerStart"}},
}

// Modes returns the start type table. It is built on first use.
var Modes = sync.OnceValue(func() *flagcodec.Table[Mode] {
	return flagcodec.NewTable("startup mode", flagcodec.Flags, modeEntries...)
})

// Startup returns the start type table extended with the Delayed and
// Trigger qualifiers, used for edit expressions like "+Auto,-Delayed".
var Startup = sync.OnceValue(func() *flagcodec.Table[Mode] {
	entries := make([]flagcodec.Entry[Mode], 0, len(modeEntries)+len(optionEntries))
	entries = append(entries, modeEntries...)
	entries = append(entries, optionEntries...)
	return flagcodec.NewTable("startup option", flagcodec.Flags, entries...)
})

// Parse converts user text such as "auto" into a start type.
func Parse(text string) (Mode, error) {
	return Modes().Parse(text)
}

// String renders the start type bits of m with canonical names.
func String(m Mode) string {
	return Modes().RenderFlags(m)
}

// Canonicalize rewrites startup text to canonical spelling.
func Canonicalize(text string) (string, error) {
	return Startup().Canonicalize(text)
}

// Merge applies an edit expression to m.
func Merge(text string, m Mode) (Mode, error) {
	return Startup().Merge(text, m)
}

func (m Mode) String() string {
	return Startup().RenderFlags(m)
}

// Kind returns only the start type bits.
func (m Mode) Kind() Mode {
	return m & ModeMask
}

// Has reports whether every bit of flag is set.
func (m Mode) Has(flag Mode) bool {
	return m&flag == flag
}

// Describe renders the start type followed by its qualifiers, e.g.
// "Automatic (Delayed, Trigger)".
func Describe(m Mode) string {
	s := String(m.Kind())
	var extra []string
	if m.Has(Delayed) {
		extra = append(extra, "Delayed")
	}
	if m.Has(Trigger) {
		extra = append(extra, "Trigger")
	}
	if len(extra) > 0 {
		s += " (" + strings.Join(extra, ", ") + ")"
	}
	return s
}

// FromStartType maps an SCM start type to a Mode. Boot and system start
// types have no alias and map to zero.
func FromStartType(t uint32) Mode {
	switch t {
	case startTypeAutomatic:
		return Automatic
	case startTypeManual:
		return Manual
	case startTypeDisabled:
		return Disabled
	default:
		return 0
	}
}

// StartType returns the SCM start type for the start type bits of m, or
// zero when m does not hold exactly one of them.
func (m Mode) StartType() uint32 {
	switch m.Kind() {
	case Automatic:
		return startTypeAutomatic
	case Manual:
		return startTypeManual
	case Disabled:
		return startTypeDisabled
	default:
		return 0
	}
}

// Single reports whether m holds exactly one start type bit.
func (m Mode) Single() bool {
	return m.StartType() != 0
}
