//go:build !windows

package main

import (
	"fmt"

	"github.com/nexidian/gocliselect"
	"github.com/spf13/cobra"
)

// chooseMode asks for a startup type with an arrow key menu.
func chooseMode(_ *cobra.Command, name string) (string, error) {
	menu := gocliselect.NewMenu(fmt.Sprintf("Startup type for %s", name))
	for _, c := range modeChoices() {
		menu.AddItem(c.Label, c.Text)
	}
	if text := menu.Display(); text != "" {
		return text, nil
	}
	return "", errNoModeSelected
}
