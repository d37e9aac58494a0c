package service

import (
	"strings"
	"sync"

	"github.com/dronm/gowinsvc/flagcodec"
)

// Hive is a predefined registry root key handle.
type Hive uint32

const (
	ClassesRoot   Hive = 0x80000000
	CurrentUser   Hive = 0x80000001
	LocalMachine  Hive = 0x80000002
	Users         Hive = 0x80000003
	CurrentConfig Hive = 0x80000005
)

// Hive handles are not bit flags, so the table is a number table in
// descending order and a single handle renders to exactly one name.
var hiveTable = sync.OnceValue(func() *flagcodec.Table[Hive] {
	return flagcodec.NewTable("registry hive", flagcodec.Number,
		flagcodec.Entry[Hive]{Value: CurrentConfig, Aliases: []string{"HKEY_CURRENT_CONFIG", "HKCC", "HKCC:"}},
		flagcodec.Entry[Hive]{Value: Users, Aliases: []string{"HKEY_USERS", "HKU", "HKU:"}},
		flagcodec.Entry[Hive]{Value: LocalMachine, Aliases: []string{"HKEY_LOCAL_MACHINE", "HKLM", "HKLM:"}},
		flagcodec.Entry[Hive]{Value: CurrentUser, Aliases: []string{"HKEY_CURRENT_USER", "HKCU", "HKCU:"}},
		flagcodec.Entry[Hive]{Value: ClassesRoot, Aliases: []string{"HKEY_CLASSES_ROOT", "HKCR", "HKCR:"}},
	)
})

func (h Hive) String() string {
	return hiveTable().RenderNumber(h)
}

// SplitKeyPath splits "HKLM:\SYSTEM\CurrentControlSet" into its hive and
// the subkey path. Forward slashes are accepted as separators.
func SplitKeyPath(path string) (Hive, string, error) {
	p := strings.ReplaceAll(strings.TrimSpace(path), "/", `\`)
	head, rest, _ := strings.Cut(p, `\`)

	e, ok := hiveTable().Lookup(strings.TrimSpace(head))
	if !ok {
		return 0, "", &flagcodec.UnrecognizedTokenError{
			Token: head,
			Input: path,
			Table: hiveTable().Name(),
		}
	}
	return e.Value, strings.Trim(rest, `\`), nil
}

const servicesKeyPath = `HKLM\SYSTEM\CurrentControlSet\Services`

// serviceKey returns the hive and subkey holding the settings of name.
func serviceKey(name string) (Hive, string) {
	hive, key, err := SplitKeyPath(servicesKeyPath + `\` + name)
	if err != nil {
		panic(err)
	}
	return hive, key
}
