//go:build windows

package main

import "github.com/spf13/cobra"

// chooseMode asks for a startup type with a numbered prompt on the
// command input.
func chooseMode(cmd *cobra.Command, name string) (string, error) {
	return promptMode(cmd.InOrStdin(), cmd.OutOrStdout(), name)
}
