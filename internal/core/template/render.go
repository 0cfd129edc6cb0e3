// Package template substitutes flattened parameters into prompt templates.
package template

import (
	"fmt"
	"sort"
	"strings"

	"github.com/layerprompt/layerprompt/internal/core"
)

// Result is a rendered template plus the placeholders left unresolved.
type Result struct {
	Text    string
	Missing []string
}

// Render replaces {{key}} placeholders with values from params. Unknown keys
// stay verbatim and are listed in Result.Missing; with strict they fail with
// MissingVariable, as does an unclosed or empty expression.
func Render(input string, params map[string]string, strict bool) (Result, error) {
	if input == "" {
		return Result{}, nil
	}

	var out strings.Builder
	missing := map[string]struct{}{}
	rest := input
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			out.WriteString(rest)
			break
		}

		out.WriteString(rest[:start])
		rest = rest[start+2:]

		end := strings.Index(rest, "}}")
		if end == -1 {
			if strict {
				return Result{}, &core.Error{Kind: core.KindMissingVariable, Msg: "unclosed template expression"}
			}
			out.WriteString("{{")
			out.WriteString(rest)
			break
		}

		raw := rest[:end]
		key := strings.TrimSpace(raw)
		rest = rest[end+2:]

		if key == "" {
			if strict {
				return Result{}, &core.Error{Kind: core.KindMissingVariable, Msg: "empty template expression"}
			}
			out.WriteString("{{" + raw + "}}")
			continue
		}

		value, ok := params[key]
		if !ok {
			if strict {
				return Result{}, &core.Error{
					Kind:  core.KindMissingVariable,
					Msg:   fmt.Sprintf("missing variable %q", key),
					Value: key,
				}
			}
			missing[key] = struct{}{}
			out.WriteString("{{" + raw + "}}")
			continue
		}
		out.WriteString(value)
	}

	return Result{Text: out.String(), Missing: sortedKeys(missing)}, nil
}

// Placeholders lists the distinct keys referenced by input, sorted.
func Placeholders(input string) []string {
	found := map[string]struct{}{}
	rest := input
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			break
		}
		rest = rest[start+2:]
		end := strings.Index(rest, "}}")
		if end == -1 {
			break
		}
		if key := strings.TrimSpace(rest[:end]); key != "" {
			found[key] = struct{}{}
		}
		rest = rest[end+2:]
	}
	return sortedKeys(found)
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
