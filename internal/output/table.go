package output

import (
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/layerprompt/layerprompt/internal/core/engine"
	"github.com/layerprompt/layerprompt/internal/core/profile"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatResolution renders a resolution as a two-column table.
func (f *TableFormatter) FormatResolution(res engine.Resolution) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Field", "Value"})
	for _, fld := range resolutionFields(res) {
		t.AppendRow(table.Row{fld.name, fld.value})
	}
	return t.Render(), nil
}

// FormatProfiles renders one row per profile.
func (f *TableFormatter) FormatProfiles(profiles []profile.Profile) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Name", "Type", "Prompts", "Schemas", "Layers"})
	for _, p := range profiles {
		t.AppendRow(table.Row{p.Name, profileKind(p), p.PromptBaseDir, p.SchemaBaseDir, p.LayerPattern})
	}
	if len(profiles) > 0 {
		t.AppendFooter(table.Row{"", "", "", "", pluralProfiles(len(profiles))})
	}
	return t.Render(), nil
}
