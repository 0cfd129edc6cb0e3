// Package variables collects raw CLI inputs, materializes them into concrete
// values and flattens the result for template rendering.
package variables

import (
	"strings"
)

// Args is the already-tokenized CLI input relevant to variables.
type Args struct {
	FromFile     string
	Destination  string
	Adaptation   string
	UseSchema    bool
	Vars         []string
	Stdin        string
	StdinPresent bool
}

// Source is the raw, unvalidated variable bag. Built once, read-only after.
type Source struct {
	FromFile    string
	Destination string
	Stdin       string
	HasStdin    bool
	Adaptation  string
	UseSchema   bool
	Custom      map[string]string
}

// Collect maps parsed arguments into a Source. It performs no I/O. Custom
// variables are split on the first "="; later duplicates win. Empty keys or
// values are kept and rejected during materialization.
func Collect(args Args) Source {
	src := Source{
		FromFile:    strings.TrimSpace(args.FromFile),
		Destination: strings.TrimSpace(args.Destination),
		Adaptation:  strings.TrimSpace(args.Adaptation),
		UseSchema:   args.UseSchema,
		Stdin:       args.Stdin,
		HasStdin:    args.StdinPresent,
		Custom:      make(map[string]string, len(args.Vars)),
	}
	for _, raw := range args.Vars {
		key, value, _ := strings.Cut(raw, "=")
		src.Custom[strings.TrimSpace(key)] = value
	}
	return src
}
