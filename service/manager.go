package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dronm/gowinsvc/flagcodec"
	"github.com/dronm/gowinsvc/startmode"
)

// Options tune how long the manager waits for state transitions.
type Options struct {
	WaitTimeout  time.Duration
	PollInterval time.Duration
}

func (o *Options) setDefaults() {
	if o.WaitTimeout == 0 {
		o.WaitTimeout = 10 * time.Second
	}
	if o.PollInterval == 0 {
		o.PollInterval = 250 * time.Millisecond
	}
}

// Summary is one line of a service listing.
type Summary struct {
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	State       string `json:"state" yaml:"state"`
	StartupType string `json:"startup_type" yaml:"startup_type"`
}

// Item is the full view of one service.
type Item struct {
	Name         string         `json:"name" yaml:"name"`
	DisplayName  string         `json:"display_name" yaml:"display_name"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty"`
	Path         string         `json:"path" yaml:"path"`
	Account      string         `json:"account,omitempty" yaml:"account,omitempty"`
	State        string         `json:"state" yaml:"state"`
	ProcessID    uint32         `json:"process_id,omitempty" yaml:"process_id,omitempty"`
	StartupType  string         `json:"startup_type" yaml:"startup_type"`
	Accepts      string         `json:"accepts" yaml:"accepts"`
	ServiceType  string         `json:"service_type" yaml:"service_type"`
	Dependencies []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Startup      startmode.Mode `json:"-" yaml:"-"`
	Status       Status         `json:"-" yaml:"-"`
}

// StartupChange reports the outcome of ChangeStartup.
type StartupChange struct {
	Service string         `json:"service" yaml:"service"`
	From    string         `json:"from" yaml:"from"`
	To      string         `json:"to" yaml:"to"`
	Changed bool           `json:"changed" yaml:"changed"`
	Before  startmode.Mode `json:"-" yaml:"-"`
	After   startmode.Mode `json:"-" yaml:"-"`
}

// Manager implements service administration on top of the SCM, WMI and
// the registry.
type Manager struct {
	ctrl   Controller
	insp   Inspector
	probe  Probe
	logger logrus.FieldLogger
	opts   Options
}

// NewManager returns a Manager over the given collaborators. Zero fields of
// opts get the default wait timeout and poll interval.
func NewManager(ctrl Controller, insp Inspector, probe Probe, logger logrus.FieldLogger, opts Options) *Manager {
	opts.setDefaults()
	return &Manager{
		ctrl:   ctrl,
		insp:   insp,
		probe:  probe,
		logger: logger,
		opts:   opts,
	}
}

// WildcardPattern compiles a pattern with * and ? wildcards into an
// anchored case-insensitive expression.
func WildcardPattern(pattern string) (*regexp.Regexp, error) {
	q := regexp.QuoteMeta(pattern)
	q = strings.ReplaceAll(q, `\*`, ".*")
	q = strings.ReplaceAll(q, `\?`, ".")
	return regexp.Compile("(?is)^" + q + "$")
}

// List returns the services whose name or display name matches pattern.
// An empty pattern matches everything.
func (m *Manager) List(pattern string) ([]Summary, error) {
	var re *regexp.Regexp
	if strings.TrimSpace(pattern) != "" {
		var err error
		if re, err = WildcardPattern(pattern); err != nil {
			return nil, err
		}
	}

	services, err := m.insp.Services()
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	list := make([]Summary, 0, len(services))
	for _, s := range services {
		if re != nil && !re.MatchString(s.Name) && !re.MatchString(s.DisplayName) {
			continue
		}

		mode, err := startmode.Parse(s.StartMode)
		if err != nil {
			// boot and system start modes have no alias
			mode = 0
		}
		if s.DelayedAutoStart && mode == startmode.Automatic {
			mode |= startmode.Delayed
		}
		if trig, err := m.probe.TriggerStart(s.Name); err == nil && trig {
			mode |= startmode.Trigger
		}

		list = append(list, Summary{
			Name:        s.Name,
			DisplayName: s.DisplayName,
			State:       s.State,
			StartupType: startmode.Describe(mode),
		})
	}

	sort.Slice(list, func(i, j int) bool {
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
	return list, nil
}

// resolve maps a service or display name, in any case, to the service name.
func (m *Manager) resolve(name string) (string, error) {
	names, err := m.ctrl.List()
	if err != nil {
		return "", err
	}
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return n, nil
		}
	}
	for _, n := range names {
		cfg, err := m.ctrl.Config(n)
		if err == nil && strings.EqualFold(cfg.DisplayName, name) {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Get returns the service with the given service or display name.
func (m *Manager) Get(name string) (Item, error) {
	svcName, err := m.resolve(name)
	if err != nil {
		return Item{}, err
	}
	return m.item(svcName)
}

func (m *Manager) item(name string) (Item, error) {
	cfg, err := m.ctrl.Config(name)
	if err != nil {
		return Item{}, err
	}
	st, err := m.ctrl.Query(name)
	if err != nil {
		return Item{}, err
	}
	mode := m.mode(name, cfg)

	return Item{
		Name:         name,
		DisplayName:  cfg.DisplayName,
		Description:  cfg.Description,
		Path:         cfg.BinaryPath,
		Account:      cfg.StartName,
		State:        st.State.String(),
		ProcessID:    st.ProcessID,
		StartupType:  startmode.Describe(mode),
		Accepts:      st.Accepts.String(),
		ServiceType:  cfg.ServiceType.String(),
		Dependencies: cfg.Dependencies,
		Startup:      mode,
		Status:       st,
	}, nil
}

// mode combines the SCM start type with the registry qualifiers.
func (m *Manager) mode(name string, cfg Config) startmode.Mode {
	mode := startmode.FromStartType(cfg.StartType)

	delayed := cfg.DelayedAutoStart
	if !delayed {
		if d, err := m.probe.DelayedAutoStart(name); err == nil {
			delayed = d
		}
	}
	if delayed && mode == startmode.Automatic {
		mode |= startmode.Delayed
	}
	if trig, err := m.probe.TriggerStart(name); err == nil && trig {
		mode |= startmode.Trigger
	}
	return mode
}

// Exists reports whether a service with the name or display name exists.
func (m *Manager) Exists(name string) (bool, error) {
	_, err := m.resolve(name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// ExistsWithMode reports whether the service exists and its start type
// matches modeText. Delayed and trigger qualifiers are ignored.
func (m *Manager) ExistsWithMode(name, modeText string) (bool, error) {
	want, err := startmode.Parse(modeText)
	if err != nil {
		return false, err
	}
	it, err := m.Get(name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return it.Startup&startmode.ModeMask == want&startmode.ModeMask, nil
}

// Start starts a stopped service or continues a paused one.
func (m *Manager) Start(ctx context.Context, name string) (Item, error) {
	svcName, err := m.resolve(name)
	if err != nil {
		return Item{}, err
	}
	st, err := m.ctrl.Query(svcName)
	if err != nil {
		return Item{}, err
	}
	log := m.logger.WithField("service", svcName)

	switch {
	case st.State == Paused && st.Accepts&AcceptPauseContinue != 0:
		log.Info("continuing service")
		if _, err := m.ctrl.Control(svcName, CmdContinue); err != nil {
			return Item{}, err
		}
	case st.State == Stopped:
		log.Info("starting service")
		if err := m.ctrl.Start(svcName); err != nil {
			return Item{}, err
		}
	default:
		return Item{}, fmt.Errorf("%w: start %s while %s", ErrInvalidState, svcName, st.State)
	}

	if _, err := m.waitFor(ctx, svcName, Running); err != nil {
		return Item{}, err
	}
	return m.item(svcName)
}

// Stop stops a running service. A paused service is continued first.
func (m *Manager) Stop(ctx context.Context, name string) (Item, error) {
	svcName, err := m.resolve(name)
	if err != nil {
		return Item{}, err
	}
	st, err := m.ctrl.Query(svcName)
	if err != nil {
		return Item{}, err
	}
	log := m.logger.WithField("service", svcName)

	switch {
	case st.State == Running && st.Accepts&AcceptStop != 0:
	case st.State == Paused && st.Accepts&AcceptPauseContinue != 0:
		log.Info("continuing service before stop")
		if _, err := m.ctrl.Control(svcName, CmdContinue); err != nil {
			return Item{}, err
		}
		if _, err := m.waitFor(ctx, svcName, Running); err != nil {
			return Item{}, err
		}
	default:
		return Item{}, fmt.Errorf("%w: stop %s while %s", ErrInvalidState, svcName, st.State)
	}

	log.Info("stopping service")
	if _, err := m.ctrl.Control(svcName, CmdStop); err != nil {
		return Item{}, err
	}
	if _, err := m.waitFor(ctx, svcName, Stopped); err != nil {
		return Item{}, err
	}
	return m.item(svcName)
}

// Restart stops and starts a running or paused service.
func (m *Manager) Restart(ctx context.Context, name string) (Item, error) {
	svcName, err := m.resolve(name)
	if err != nil {
		return Item{}, err
	}
	st, err := m.ctrl.Query(svcName)
	if err != nil {
		return Item{}, err
	}
	log := m.logger.WithField("service", svcName)

	switch {
	case st.State == Running && st.Accepts&AcceptStop != 0:
	case st.State == Paused && st.Accepts&AcceptPauseContinue != 0:
		log.Info("continuing service before restart")
		if _, err := m.ctrl.Control(svcName, CmdContinue); err != nil {
			return Item{}, err
		}
		if _, err := m.waitFor(ctx, svcName, Running); err != nil {
			return Item{}, err
		}
	default:
		return Item{}, fmt.Errorf("%w: restart %s while %s", ErrInvalidState, svcName, st.State)
	}

	log.Info("restarting service")
	if _, err := m.ctrl.Control(svcName, CmdStop); err != nil {
		return Item{}, err
	}
	if _, err := m.waitFor(ctx, svcName, Stopped); err != nil {
		return Item{}, err
	}
	if err := m.ctrl.Start(svcName); err != nil {
		return Item{}, err
	}
	if _, err := m.waitFor(ctx, svcName, Running); err != nil {
		return Item{}, err
	}
	return m.item(svcName)
}

func (m *Manager) waitFor(ctx context.Context, name string, want State) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.WaitTimeout)
	defer cancel()

	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	for {
		st, err := m.ctrl.Query(name)
		if err != nil {
			return st, err
		}
		if st.State == want {
			return st, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return st, fmt.Errorf("%w: %s is %s, want %s", ErrTimeout, name, st.State, want)
			}
			return st, ctx.Err()
		}
	}
}

// ChangeStartup sets the startup type of a service from text such as
// "Auto, Delayed" or applies an edit such as "-Delayed".
//
// Absolute text replaces the start type and the delayed flag. The trigger
// flag is kept as is and cannot be changed.
func (m *Manager) ChangeStartup(ctx context.Context, name, text string) (StartupChange, error) {
	if err := ctx.Err(); err != nil {
		return StartupChange{}, err
	}
	svcName, err := m.resolve(name)
	if err != nil {
		return StartupChange{}, err
	}
	cfg, err := m.ctrl.Config(svcName)
	if err != nil {
		return StartupChange{}, err
	}
	cur := m.mode(svcName, cfg)

	next, err := nextMode(text, cur)
	if err != nil {
		return StartupChange{}, err
	}

	change := StartupChange{
		Service: svcName,
		From:    startmode.Describe(cur),
		To:      startmode.Describe(next),
		Changed: next != cur,
		Before:  cur,
		After:   next,
	}
	if !change.Changed {
		return change, nil
	}

	log := m.logger.WithFields(logrus.Fields{"service": svcName, "from": change.From, "to": change.To})
	log.Info("changing startup type")

	delayedOn := next.Has(startmode.Delayed)
	delayedChanged := cur.Has(startmode.Delayed) != delayedOn

	if delayedChanged && !delayedOn {
		if err := m.ctrl.SetDelayedAutoStart(svcName, false); err != nil {
			return change, fmt.Errorf("clear delayed start: %w", err)
		}
	}
	if next.Kind() != cur.Kind() {
		mode := startmode.String(next.Kind())
		code, err := m.insp.ChangeStartMode(svcName, mode)
		if err != nil {
			return change, err
		}
		if code != 0 {
			return change, &StartModeError{Service: svcName, Mode: mode, Code: code}
		}
	}
	if delayedChanged && delayedOn {
		if err := m.ctrl.SetDelayedAutoStart(svcName, true); err != nil {
			return change, fmt.Errorf("set delayed start: %w", err)
		}
	}
	return change, nil
}

func nextMode(text string, cur startmode.Mode) (startmode.Mode, error) {
	var next startmode.Mode
	if flagcodec.IsEdit(text) {
		var err error
		if next, err = startmode.Merge(text, cur); err != nil {
			return 0, err
		}
		// delayed start goes away with Automatic unless the edit keeps it
		if next.Has(startmode.Delayed) && next.Kind() != startmode.Automatic && !mentions(text, startmode.Delayed) {
			next &^= startmode.Delayed
		}
	} else {
		parsed, err := startmode.Startup().Parse(text)
		if err != nil {
			return 0, err
		}
		next = parsed | cur&startmode.Trigger
	}

	if next&startmode.Trigger != cur&startmode.Trigger {
		return 0, ErrTriggerReadOnly
	}
	if !next.Single() {
		return 0, fmt.Errorf("%w: %q", ErrAmbiguousMode, text)
	}
	if next.Has(startmode.Delayed) && next.Kind() != startmode.Automatic {
		return 0, ErrDelayedRequiresAutomatic
	}
	return next, nil
}

// mentions reports whether an edit expression mentions flag in any token.
func mentions(text string, flag startmode.Mode) bool {
	for _, tok := range strings.Split(text, ",") {
		name := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(tok), "+-"))
		if e, ok := startmode.Startup().Lookup(name); ok && e.Value == flag {
			return true
		}
	}
	return false
}

var _ Inspector = (*WMIInspector)(nil)
