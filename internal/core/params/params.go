// Package params holds the validated directive, layer and adaptation values
// that select a prompt template.
package params

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/layerprompt/layerprompt/internal/core"
)

// Directive is the transformation verb (to, summary, defect, ...).
// The zero value is invalid; build one with NewDirective.
type Directive struct {
	value string
}

// Layer is the granularity level (project, issue, task, ...).
// The zero value is invalid; build one with NewLayer.
type Layer struct {
	value string
}

// Adaptation is an optional named template variant. The zero value means
// no adaptation.
type Adaptation struct {
	value string
}

// DefaultAdaptationPattern accepts one filename-safe token.
const DefaultAdaptationPattern = `^[A-Za-z0-9][A-Za-z0-9_-]*$`

// NewDirective validates raw against pattern.
func NewDirective(raw string, pattern *regexp.Regexp) (Directive, error) {
	if err := validate(raw, pattern, core.KindInvalidDirective, "directive"); err != nil {
		return Directive{}, err
	}
	return Directive{value: raw}, nil
}

// NewLayer validates raw against pattern.
func NewLayer(raw string, pattern *regexp.Regexp) (Layer, error) {
	if err := validate(raw, pattern, core.KindInvalidLayer, "layer"); err != nil {
		return Layer{}, err
	}
	return Layer{value: raw}, nil
}

// NewAdaptation validates raw against pattern. An empty raw value yields the
// zero Adaptation.
func NewAdaptation(raw string, pattern *regexp.Regexp) (Adaptation, error) {
	if raw == "" {
		return Adaptation{}, nil
	}
	if err := validate(raw, pattern, core.KindInvalidAdaptation, "adaptation"); err != nil {
		return Adaptation{}, err
	}
	return Adaptation{value: raw}, nil
}

func (d Directive) String() string { return d.value }

// IsZero reports whether d was never validated.
func (d Directive) IsZero() bool { return d.value == "" }

func (l Layer) String() string { return l.value }

// IsZero reports whether l was never validated.
func (l Layer) IsZero() bool { return l.value == "" }

func (a Adaptation) String() string { return a.value }

// IsZero reports whether no adaptation was requested.
func (a Adaptation) IsZero() bool { return a.value == "" }

// Pattern compiles a profile-supplied validation pattern.
func Pattern(expr string) (*regexp.Regexp, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("pattern is empty")
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", expr, err)
	}
	return re, nil
}

// CheckCombination rejects a directive/layer pair the profile restricts.
// A directive absent from allowed accepts every layer.
func CheckCombination(directive Directive, layer Layer, allowed map[string][]string) error {
	if len(allowed) == 0 {
		return nil
	}
	layers, ok := allowed[directive.value]
	if !ok {
		return nil
	}
	for _, candidate := range layers {
		if candidate == layer.value {
			return nil
		}
	}
	return &core.Error{
		Kind:  core.KindUnsupportedCombination,
		Msg:   fmt.Sprintf("directive %q does not support layer %q (allowed: %s)", directive.value, layer.value, strings.Join(layers, ", ")),
		Value: directive.value + "/" + layer.value,
	}
}

func validate(raw string, pattern *regexp.Regexp, kind core.Kind, label string) error {
	var source string
	if pattern != nil {
		source = pattern.String()
	}

	switch {
	case strings.TrimSpace(raw) == "":
		return &core.Error{Kind: kind, Msg: label + " is empty", Value: raw, Pattern: source}
	case strings.TrimSpace(raw) != raw:
		return &core.Error{Kind: kind, Msg: label + " has leading or trailing whitespace", Value: raw, Pattern: source}
	case !isPathSegment(raw):
		return &core.Error{Kind: kind, Msg: label + " must be a single path segment", Value: raw, Pattern: source}
	case pattern == nil:
		return &core.Error{Kind: kind, Msg: "no pattern configured for " + label, Value: raw}
	case !pattern.MatchString(raw):
		return &core.Error{Kind: kind, Msg: label + " does not match pattern", Value: raw, Pattern: source}
	}
	return nil
}

// isPathSegment holds regardless of the profile pattern: every token ends up
// as one directory or filename component.
func isPathSegment(raw string) bool {
	return !strings.ContainsAny(raw, "/\\\x00") && !strings.Contains(raw, "..")
}
