package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dronm/gowinsvc/startmode"
)

var errNoModeSelected = errors.New("no startup type selected")

// modeChoice is one entry of the startup type menu.
type modeChoice struct {
	Label string
	Text  string
}

// modeChoices lists every start type, with delayed automatic start right
// after Automatic.
func modeChoices() []modeChoice {
	var choices []modeChoice
	for _, e := range startmode.Modes().Entries() {
		choices = append(choices, modeChoice{Label: e.Canonical(), Text: e.Canonical()})
		if e.Value == startmode.Automatic {
			delayed := startmode.Automatic | startmode.Delayed
			choices = append(choices, modeChoice{
				Label: startmode.Describe(delayed),
				Text:  startmode.Startup().RenderFlags(delayed),
			})
		}
	}
	return choices
}

// promptMode prints a numbered menu to out and reads the choice from in.
func promptMode(in io.Reader, out io.Writer, name string) (string, error) {
	choices := modeChoices()

	fmt.Fprintf(out, "Startup type for %s:\n", name)
	for i, c := range choices {
		fmt.Fprintf(out, "  %d) %s\n", i+1, c.Label)
	}
	fmt.Fprint(out, "Choice: ")

	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errNoModeSelected
	}
	line := strings.TrimSpace(sc.Text())
	if line == "" {
		return "", errNoModeSelected
	}

	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(choices) {
		return "", fmt.Errorf("invalid choice %q, want 1-%d", line, len(choices))
	}
	return choices[n-1].Text, nil
}
