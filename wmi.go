package gowinsvc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// ErrServiceNotFound is returned when WMI has no Win32_Service with the name.
var ErrServiceNotFound = errors.New("wmi: service not found")

// Win32Service holds the Win32_Service properties read by the manager.
type Win32Service struct {
	Name             string
	DisplayName      string
	PathName         string
	Description      string
	StartName        string
	StartMode        string
	State            string
	ProcessID        uint32
	DelayedAutoStart bool
}

const serviceProps = "Name, DisplayName, PathName, Description, StartName, StartMode, State, ProcessId, DelayedAutoStart"

// Win32_Service method return codes.
var returnCodes = map[uint32]string{
	0:  "success",
	1:  "not supported",
	2:  "access denied",
	3:  "dependent services running",
	4:  "invalid service control",
	5:  "service cannot accept control",
	6:  "service not active",
	7:  "service request timeout",
	8:  "unknown failure",
	9:  "path not found",
	10: "service already running",
	11: "service database locked",
	12: "service dependency deleted",
	13: "service dependency failure",
	14: "service disabled",
	15: "service logon failed",
	16: "service marked for deletion",
	17: "service no thread",
	18: "status circular dependency",
	19: "status duplicate name",
	20: "status invalid name",
	21: "status invalid parameter",
	22: "status invalid service account",
	23: "status service exists",
	24: "service already paused",
}

// ReturnCodeText describes a Win32_Service method return value.
func ReturnCodeText(code uint32) string {
	if s, ok := returnCodes[code]; ok {
		return s
	}
	return fmt.Sprintf("return code %d", code)
}

// EscapeWQL quotes s for use inside a single quoted WQL string literal.
func EscapeWQL(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return r.Replace(s)
}

// QueryService reads one Win32_Service instance by service name.
func (p *Pool) QueryService(name string) (Win32Service, error) {
	wql := fmt.Sprintf("SELECT %s FROM Win32_Service WHERE Name = '%s'", serviceProps, EscapeWQL(name))
	list, err := p.query(wql)
	if err != nil {
		return Win32Service{}, err
	}
	if len(list) == 0 {
		return Win32Service{}, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	return list[0], nil
}

// QueryServices reads every Win32_Service instance.
func (p *Pool) QueryServices() ([]Win32Service, error) {
	return p.query(fmt.Sprintf("SELECT %s FROM Win32_Service", serviceProps))
}

func (p *Pool) query(wql string) ([]Win32Service, error) {
	res, err := p.Execute(func(conn *Connection) (any, error) {
		return conn.Do(func(services *ole.IDispatch) (any, error) {
			return queryServices(services, wql)
		})
	})
	if err != nil {
		return nil, err
	}
	list, _ := res.([]Win32Service)
	return list, nil
}

// ChangeStartMode calls Win32_Service.ChangeStartMode. mode is one of
// "Boot", "System", "Automatic", "Manual" or "Disabled". The WMI return
// value is passed back; non-zero means the change was refused.
func (p *Pool) ChangeStartMode(name, mode string) (uint32, error) {
	path := fmt.Sprintf("Win32_Service.Name='%s'", EscapeWQL(name))
	res, err := p.Execute(func(conn *Connection) (any, error) {
		return conn.Do(func(services *ole.IDispatch) (any, error) {
			objRaw, err := oleutil.CallMethod(services, "Get", path)
			if err != nil {
				return nil, fmt.Errorf("Get(%s): %w", path, err)
			}
			obj := objRaw.ToIDispatch()
			defer obj.Release()

			ret, err := oleutil.CallMethod(obj, "ChangeStartMode", mode)
			if err != nil {
				return nil, fmt.Errorf("ChangeStartMode(%s): %w", mode, err)
			}
			defer ret.Clear()

			return toUint32(ret.Value()), nil
		})
	})
	if err != nil {
		return 0, err
	}
	code, _ := res.(uint32)
	return code, nil
}

func queryServices(services *ole.IDispatch, wql string) ([]Win32Service, error) {
	resultRaw, err := oleutil.CallMethod(services, "ExecQuery", wql)
	if err != nil {
		return nil, fmt.Errorf("ExecQuery: %w", err)
	}
	result := resultRaw.ToIDispatch()
	defer result.Release()

	var list []Win32Service
	err = oleutil.ForEach(result, func(v *ole.VARIANT) error {
		defer v.Clear()
		item := v.ToIDispatch()

		props := make(map[string]any)
		for _, name := range strings.Split(serviceProps, ", ") {
			prop, err := oleutil.GetProperty(item, name)
			if err != nil {
				return fmt.Errorf("property %s: %w", name, err)
			}
			props[name] = prop.Value()
			prop.Clear()
		}
		list = append(list, serviceFromProps(props))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func serviceFromProps(props map[string]any) Win32Service {
	return Win32Service{
		Name:             toString(props["Name"]),
		DisplayName:      toString(props["DisplayName"]),
		PathName:         toString(props["PathName"]),
		Description:      toString(props["Description"]),
		StartName:        toString(props["StartName"]),
		StartMode:        toString(props["StartMode"]),
		State:            toString(props["State"]),
		ProcessID:        toUint32(props["ProcessId"]),
		DelayedAutoStart: toBool(props["DelayedAutoStart"]),
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", s)
	}
}

func toUint32(v any) uint32 {
	switch n := v.(type) {
	case int:
		return uint32(n)
	case int8:
		return uint32(n)
	case int16:
		return uint32(n)
	case int32:
		return uint32(n)
	case int64:
		return uint32(n)
	case uint:
		return uint32(n)
	case uint8:
		return uint32(n)
	case uint16:
		return uint32(n)
	case uint32:
		return n
	case uint64:
		return uint32(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}
