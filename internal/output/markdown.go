package output

import (
	"fmt"
	"strings"

	"github.com/layerprompt/layerprompt/internal/core/engine"
	"github.com/layerprompt/layerprompt/internal/core/profile"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

// FormatResolution renders a resolution as Markdown.
func (f *MarkdownFormatter) FormatResolution(res engine.Resolution) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s/%s\n\n",
		escapeMarkdownCell(res.Template.Directive),
		escapeMarkdownCell(res.Template.Layer)))
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	for _, fld := range resolutionFields(res) {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", fld.name, escapeMarkdownCell(fld.value)))
	}
	return sb.String(), nil
}

// FormatProfiles renders profiles as Markdown.
func (f *MarkdownFormatter) FormatProfiles(profiles []profile.Profile) (string, error) {
	var sb strings.Builder
	sb.WriteString("| Name | Type | Prompts | Schemas | Layers |\n")
	sb.WriteString("|------|------|---------|---------|--------|\n")
	for _, p := range profiles {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			escapeMarkdownCell(p.Name),
			profileKind(p),
			escapeMarkdownCell(p.PromptBaseDir),
			escapeMarkdownCell(p.SchemaBaseDir),
			escapeMarkdownCell(p.LayerPattern),
		))
	}
	sb.WriteString(fmt.Sprintf("\n**Total**: %s\n", pluralProfiles(len(profiles))))
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}

func pluralProfiles(n int) string {
	if n == 1 {
		return "1 profile"
	}
	return fmt.Sprintf("%d profiles", n)
}
