package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/dronm/gowinsvc/service"
	"github.com/dronm/gowinsvc/startmode"
)

// modeRow is one line of the modes listing.
type modeRow struct {
	Name    string   `json:"name" yaml:"name"`
	Value   uint32   `json:"value" yaml:"value"`
	Aliases []string `json:"aliases" yaml:"aliases"`
}

func modeRows() []modeRow {
	var rows []modeRow
	for _, e := range startmode.Startup().Entries() {
		rows = append(rows, modeRow{Name: e.Canonical(), Value: uint32(e.Value), Aliases: e.Aliases})
	}
	return rows
}

func render(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return renderTable(w, v)
	}
}

func renderTable(w io.Writer, v any) error {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	switch x := v.(type) {
	case []service.Summary:
		table.SetHeader([]string{"Name", "Display name", "State", "Startup type"})
		for _, s := range x {
			table.Append([]string{s.Name, s.DisplayName, s.State, s.StartupType})
		}
	case service.Item:
		table.SetHeader([]string{"Property", "Value"})
		table.AppendBulk([][]string{
			{"Name", x.Name},
			{"Display name", x.DisplayName},
			{"Description", x.Description},
			{"Path", x.Path},
			{"Account", x.Account},
			{"State", x.State},
			{"Process ID", fmt.Sprint(x.ProcessID)},
			{"Startup type", x.StartupType},
			{"Accepts", x.Accepts},
			{"Service type", x.ServiceType},
			{"Dependencies", strings.Join(x.Dependencies, ", ")},
		})
	case service.StartupChange:
		table.SetHeader([]string{"Service", "From", "To", "Changed"})
		table.Append([]string{x.Service, x.From, x.To, fmt.Sprint(x.Changed)})
	case []modeRow:
		table.SetHeader([]string{"Name", "Value", "Aliases"})
		for _, r := range x {
			table.Append([]string{r.Name, fmt.Sprint(r.Value), strings.Join(r.Aliases, ", ")})
		}
	default:
		return fmt.Errorf("cannot render %T as a table", v)
	}

	table.Render()
	return nil
}
