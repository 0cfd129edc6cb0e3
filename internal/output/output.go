package output

import (
	"fmt"
	"strings"

	"github.com/layerprompt/layerprompt/internal/core/engine"
	"github.com/layerprompt/layerprompt/internal/core/pathres"
	"github.com/layerprompt/layerprompt/internal/core/profile"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders resolution results and profiles.
type Formatter interface {
	FormatResolution(res engine.Resolution) (string, error)
	FormatProfiles(profiles []profile.Profile) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

type field struct {
	name  string
	value string
}

// resolutionFields is the shared row order for table and markdown output.
func resolutionFields(res engine.Resolution) []field {
	tpl := res.Template
	fields := []field{
		{"Profile", res.Profile},
		{"Directive", tpl.Directive},
		{"Layer", tpl.Layer},
		{"Source layer", tpl.SourceLayer},
		{"Adaptation", tpl.Adaptation},
		{"Status", string(tpl.Status)},
		{"Path", tpl.Path},
		{"Attempted", tpl.AttemptedPath},
	}
	if tpl.Status == pathres.StatusFallback {
		fields = append(fields, field{"Fallback exists", yesNo(tpl.FallbackExists)})
	}
	if res.Schema != nil {
		fields = append(fields,
			field{"Schema", res.Schema.Path},
			field{"Schema exists", yesNo(res.Schema.Exists)})
	}
	if len(tpl.Trace) > 0 {
		steps := make([]string, 0, len(tpl.Trace))
		for _, s := range tpl.Trace {
			steps = append(steps, string(s))
		}
		fields = append(fields, field{"Trace", strings.Join(steps, " > ")})
	}
	if tpl.Message != "" {
		fields = append(fields, field{"Notes", tpl.Message})
	}

	out := fields[:0]
	for _, f := range fields {
		if f.value != "" {
			out = append(out, f)
		}
	}
	return out
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func profileKind(p profile.Profile) string {
	if p.IsBuiltin {
		return "builtin"
	}
	return "file"
}
