// Package profile resolves a named configuration context into the base
// directories and validation patterns used by path resolution.
package profile

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/layerprompt/layerprompt/internal/core"
	"github.com/layerprompt/layerprompt/internal/core/params"
)

// DefaultName is the name of the built-in profile.
const DefaultName = "default"

// DefaultSchemaFilename is used when a profile does not name its schema file.
const DefaultSchemaFilename = "base.schema.md"

// Profile is a resolved configuration context. It is a plain value: callers
// extract what they need and drop it.
type Profile struct {
	Name              string              `json:"name" yaml:"name"`
	PromptBaseDir     string              `json:"prompt_base_dir" yaml:"prompt_base_dir"`
	SchemaBaseDir     string              `json:"schema_base_dir" yaml:"schema_base_dir"`
	WorkingDir        string              `json:"working_dir,omitempty" yaml:"working_dir,omitempty"`
	DirectivePattern  string              `json:"directive_pattern" yaml:"directive_pattern"`
	LayerPattern      string              `json:"layer_pattern" yaml:"layer_pattern"`
	AdaptationPattern string              `json:"adaptation_pattern" yaml:"adaptation_pattern"`
	SchemaFilename    string              `json:"schema_filename" yaml:"schema_filename"`
	Combinations      map[string][]string `json:"combinations,omitempty" yaml:"combinations,omitempty"`
	FallbackMustExist bool                `json:"fallback_must_exist" yaml:"fallback_must_exist"`
	IsBuiltin         bool                `json:"builtin" yaml:"builtin"`
	Sources           []string            `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// Default returns the built-in profile. It never consults the file system.
func Default() Profile {
	return Profile{
		Name:              DefaultName,
		PromptBaseDir:     "prompts",
		SchemaBaseDir:     "schema",
		DirectivePattern:  `^(to|summary|defect|convert|summarize|find-defects)$`,
		LayerPattern:      `^(project|issue|task)$`,
		AdaptationPattern: params.DefaultAdaptationPattern,
		SchemaFilename:    DefaultSchemaFilename,
		IsBuiltin:         true,
	}
}

// Patterns compiles the directive and layer patterns.
func (p Profile) Patterns() (directive *regexp.Regexp, layer *regexp.Regexp, err error) {
	directive, err = params.Pattern(p.DirectivePattern)
	if err != nil {
		return nil, nil, fmt.Errorf("profile %s directive pattern: %w", p.Name, err)
	}
	layer, err = params.Pattern(p.LayerPattern)
	if err != nil {
		return nil, nil, fmt.Errorf("profile %s layer pattern: %w", p.Name, err)
	}
	return directive, layer, nil
}

// AdaptationRegexp compiles the adaptation pattern, defaulting to
// params.DefaultAdaptationPattern when the profile leaves it unset.
func (p Profile) AdaptationRegexp() (*regexp.Regexp, error) {
	expr := p.AdaptationPattern
	if strings.TrimSpace(expr) == "" {
		expr = params.DefaultAdaptationPattern
	}
	re, err := params.Pattern(expr)
	if err != nil {
		return nil, fmt.Errorf("profile %s adaptation pattern: %w", p.Name, err)
	}
	return re, nil
}

// Validate checks the invariants every resolved profile must satisfy.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.PromptBaseDir) == "" {
		return &core.Error{
			Kind:  core.KindBaseDirectoryNotFound,
			Msg:   "prompt base directory is not configured",
			Value: p.Name,
			Paths: p.Sources,
		}
	}
	if strings.TrimSpace(p.SchemaBaseDir) == "" {
		return &core.Error{
			Kind:  core.KindBaseDirectoryNotFound,
			Msg:   "schema base directory is not configured",
			Value: p.Name,
			Paths: p.Sources,
		}
	}
	_, _, err := p.Patterns()
	if err == nil {
		_, err = p.AdaptationRegexp()
	}
	if err != nil {
		return &core.Error{
			Kind:  core.KindProfileNotFound,
			Msg:   "profile has invalid patterns",
			Value: p.Name,
			Paths: p.Sources,
			Err:   err,
		}
	}
	return nil
}

// Loader is the configuration-loading capability consulted for named profiles.
type Loader interface {
	Load(ctx context.Context, name string) (Profile, error)
}

// Resolver maps a CLI-supplied profile name to a Profile.
type Resolver struct {
	Loader Loader
}

// NewResolver builds a resolver backed by loader.
func NewResolver(loader Loader) *Resolver {
	return &Resolver{Loader: loader}
}

// Resolve returns the built-in default for an empty name and otherwise asks
// the loader. A named profile that cannot be loaded is an error, never a
// silent fallback to the default.
func (r *Resolver) Resolve(ctx context.Context, name string) (Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Default(), nil
	}
	if r == nil || r.Loader == nil {
		return Profile{}, &core.Error{
			Kind:  core.KindProfileNotFound,
			Msg:   "no profile loader configured",
			Value: name,
		}
	}

	p, err := r.Loader.Load(ctx, name)
	if err != nil {
		if core.IsKind(err, core.KindProfileNotFound) || core.IsKind(err, core.KindBaseDirectoryNotFound) {
			return Profile{}, err
		}
		return Profile{}, &core.Error{
			Kind:  core.KindProfileNotFound,
			Msg:   "failed to load profile",
			Value: name,
			Err:   err,
		}
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}
