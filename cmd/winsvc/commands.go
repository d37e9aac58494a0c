package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dronm/gowinsvc/service"
	"github.com/dronm/gowinsvc/startmode"
)

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [pattern]",
		Short: "List services, optionally filtered by a * and ? pattern",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pattern string
			if len(args) == 1 {
				pattern = args[0]
			}
			return a.withServices(func(svcs Services) error {
				list, err := svcs.List(pattern)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), a.output(), list)
			})
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show one service by service or display name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(func(svcs Services) error {
				it, err := svcs.Get(args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), a.output(), it)
			})
		},
	}
}

func (a *app) controlCmd(op, short string) *cobra.Command {
	return &cobra.Command{
		Use:   op + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(func(svcs Services) error {
				var fn func(context.Context, string) (service.Item, error)
				switch op {
				case "start":
					fn = svcs.Start
				case "stop":
					fn = svcs.Stop
				default:
					fn = svcs.Restart
				}
				it, err := fn(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), a.output(), it)
			})
		},
	}
}

func (a *app) startupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "startup <name> [mode]",
		Short: "Change the startup type, e.g. \"Auto, Delayed\" or \"-Auto,+Man\"",
		Long: `Change the startup type of a service.

The mode is either a list of names such as "Automatic, Delayed", which
replaces the startup type, or an edit such as "-Delayed" or "-Auto,+Man"
applied to the current one. Put edits starting with "-" after "--":

  winsvc startup Spooler -- -Auto,+Man

Without a mode a menu is shown.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var mode string
			if len(args) == 2 {
				mode = args[1]
			} else {
				var err error
				if mode, err = chooseMode(cmd, args[0]); err != nil {
					return err
				}
			}
			return a.withServices(func(svcs Services) error {
				change, err := svcs.ChangeStartup(cmd.Context(), args[0], mode)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), a.output(), change)
			})
		},
	}
}

func (a *app) existsCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "exists <name>",
		Short: "Report whether a service exists, optionally with a startup type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(func(svcs Services) error {
				var (
					ok  bool
					err error
				)
				if mode != "" {
					ok, err = svcs.ExistsWithMode(args[0], mode)
				} else {
					ok, err = svcs.Exists(args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ok)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "startup type the service must have")
	return cmd
}

func (a *app) modesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List startup type names and their aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return render(cmd.OutOrStdout(), a.output(), modeRows())
		},
	}
}

func (a *app) canonicalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "canonicalize <text>",
		Short: "Rewrite startup text with canonical names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := startmode.Canonicalize(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
