package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dronm/gowinsvc"
	"github.com/dronm/gowinsvc/logger"
	"github.com/dronm/gowinsvc/service"
)

// Services is the part of the service manager the commands use.
type Services interface {
	List(pattern string) ([]service.Summary, error)
	Get(name string) (service.Item, error)
	Exists(name string) (bool, error)
	ExistsWithMode(name, modeText string) (bool, error)
	Start(ctx context.Context, name string) (service.Item, error)
	Stop(ctx context.Context, name string) (service.Item, error)
	Restart(ctx context.Context, name string) (service.Item, error)
	ChangeStartup(ctx context.Context, name, text string) (service.StartupChange, error)
}

// openFunc connects to the service manager. The returned func releases it.
type openFunc func(v *viper.Viper) (Services, func(), error)

type app struct {
	v    *viper.Viper
	open openFunc
}

func newRootCmd(open openFunc) *cobra.Command {
	a := &app{v: viper.New(), open: open}
	var cfgFile string

	root := &cobra.Command{
		Use:           "winsvc",
		Short:         "Windows service manager",
		Long:          `winsvc lists, starts, stops and restarts Windows services and changes their startup type.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cfgFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml)")
	flags.StringP("output", "o", "table", "output format: table, json or yaml")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")
	flags.String("log-file", "", "append log to this file")
	flags.Duration("wait", 10*time.Second, "how long to wait for a service to change state")
	flags.String("server", ".", "WMI server")
	flags.String("user", "", "WMI user")
	flags.String("password", "", "WMI password")
	_ = a.v.BindPFlags(flags)

	root.AddCommand(
		a.listCmd(),
		a.showCmd(),
		a.controlCmd("start", "Start a stopped or continue a paused service"),
		a.controlCmd("stop", "Stop a running service"),
		a.controlCmd("restart", "Stop and start a service"),
		a.startupCmd(),
		a.existsCmd(),
		a.modesCmd(),
		a.canonicalizeCmd(),
	)
	return root
}

func (a *app) init(cfgFile string) error {
	a.v.SetEnvPrefix("WINSVC")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	switch a.output() {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", a.output())
	}

	return logger.InitializeFormat(logger.LoggerLogLevel(a.v.GetString("log-level")), logger.FormatLine, a.v.GetString("log-file"))
}

func (a *app) output() string {
	return strings.ToLower(a.v.GetString("output"))
}

// withServices opens the service manager for the duration of fn.
func (a *app) withServices(fn func(svcs Services) error) error {
	svcs, closeFn, err := a.open(a.v)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(svcs)
}

func defaultOpen(v *viper.Viper) (Services, func(), error) {
	pool, err := gowinsvc.NewPool(&gowinsvc.Config{
		Server:      v.GetString("server"),
		User:        v.GetString("user"),
		Password:    v.GetString("password"),
		MinPoolSize: 1,
		MaxPoolSize: 1,
	}, logger.Logger)
	if err != nil {
		return nil, nil, err
	}

	mgr := service.NewManager(
		service.NewSCM(),
		service.NewWMIInspector(pool),
		service.NewRegistryProbe(),
		logger.Logger,
		service.Options{WaitTimeout: v.GetDuration("wait")},
	)
	return mgr, func() { pool.Close() }, nil
}
