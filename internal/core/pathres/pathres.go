// Package pathres computes the on-disk location of prompt templates and
// schema files for a directive/layer pair.
//
// Resolution is a short sequential state machine:
//
//	BuildingDirectory -> AssigningFilename -> CheckingExistence -> Found | Fallback | Error
//
// For fixed inputs and a fixed file-system snapshot the result is identical
// on every call.
package pathres

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/layerprompt/layerprompt/internal/core"
	"github.com/layerprompt/layerprompt/internal/core/params"
)

// DefaultExtension is appended to every template filename.
const DefaultExtension = ".md"

// Status is the outcome of a resolution.
type Status string

const (
	StatusFound    Status = "found"
	StatusFallback Status = "fallback"
	StatusError    Status = "error"
)

// State names a step of the resolution state machine.
type State string

const (
	StateBuildingDirectory State = "building_directory"
	StateAssigningFilename State = "assigning_filename"
	StateCheckingExistence State = "checking_existence"
	StateFound             State = "found"
	StateFallback          State = "fallback"
	StateError             State = "error"
)

// StatFunc reports file information; os.Stat by default.
type StatFunc func(name string) (fs.FileInfo, error)

// Options configure a Resolver. They are copied out of a profile.
type Options struct {
	PromptBaseDir     string
	SchemaBaseDir     string
	SchemaFilename    string
	WorkingDir        string
	Extension         string
	FallbackMustExist bool
	Stat              StatFunc
}

// Request is one template lookup. A zero SourceLayer means Layer.
type Request struct {
	Directive   params.Directive
	Layer       params.Layer
	Adaptation  params.Adaptation
	SourceLayer params.Layer
}

// ResolvedPath is produced once per lookup and never mutated.
type ResolvedPath struct {
	Path           string  `json:"path"`
	Status         Status  `json:"status"`
	Directive      string  `json:"directive"`
	Layer          string  `json:"layer"`
	SourceLayer    string  `json:"source_layer"`
	Adaptation     string  `json:"adaptation,omitempty"`
	AttemptedPath  string  `json:"attempted_path"`
	FallbackExists bool    `json:"fallback_exists"`
	Message        string  `json:"message,omitempty"`
	Trace          []State `json:"trace"`
}

// SchemaPath is the resolved schema location. Schemas have no fallback.
type SchemaPath struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// Resolver resolves template and schema paths.
type Resolver struct {
	opts Options
}

// New returns a Resolver, filling unset options with defaults.
func New(opts Options) *Resolver {
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	if opts.Stat == nil {
		opts.Stat = os.Stat
	}
	return &Resolver{opts: opts}
}

// Resolve runs the state machine for req.
func (r *Resolver) Resolve(req Request) (ResolvedPath, error) {
	result := ResolvedPath{
		Directive:  req.Directive.String(),
		Layer:      req.Layer.String(),
		Adaptation: req.Adaptation.String(),
	}

	result.Trace = append(result.Trace, StateBuildingDirectory)
	dir, err := r.directory(r.opts.PromptBaseDir, "prompt", req.Directive, req.Layer)
	if err != nil {
		result.Status = StatusError
		result.Trace = append(result.Trace, StateError)
		return result, err
	}

	result.Trace = append(result.Trace, StateAssigningFilename)
	sourceLayer := req.SourceLayer
	if sourceLayer.IsZero() {
		sourceLayer = req.Layer
	}
	result.SourceLayer = sourceLayer.String()
	candidate := filepath.Join(dir, filename(result.SourceLayer, result.Adaptation, r.opts.Extension))
	result.AttemptedPath = candidate

	result.Trace = append(result.Trace, StateCheckingExistence)
	if r.isFile(candidate) {
		result.Path = candidate
		result.Status = StatusFound
		result.Trace = append(result.Trace, StateFound)
		return result, nil
	}

	fallback := filepath.Join(dir, filename(result.SourceLayer, "", r.opts.Extension))
	result.Path = fallback
	result.FallbackExists = r.isFile(fallback)
	result.Message = missingMessage(candidate, fallback, result.FallbackExists)

	if !result.FallbackExists && r.opts.FallbackMustExist {
		result.Status = StatusError
		result.Trace = append(result.Trace, StateError)
		return result, &core.Error{
			Kind:  core.KindTemplateFileNotFound,
			Msg:   result.Message,
			Value: req.Directive.String() + "/" + req.Layer.String(),
			Paths: dedupe(candidate, fallback),
		}
	}

	result.Status = StatusFallback
	result.Trace = append(result.Trace, StateFallback)
	return result, nil
}

// ResolveSchema returns `{schemaBaseDir}/{directive}/{layer}/{schemaFilename}`.
// It never errors on a missing file; callers decide via SchemaPath.Exists.
func (r *Resolver) ResolveSchema(directive params.Directive, layer params.Layer) (SchemaPath, error) {
	dir, err := r.directory(r.opts.SchemaBaseDir, "schema", directive, layer)
	if err != nil {
		return SchemaPath{}, err
	}

	name := strings.TrimSpace(r.opts.SchemaFilename)
	if name == "" {
		return SchemaPath{}, &core.Error{
			Kind:  core.KindSchemaFileNotFound,
			Msg:   "schema filename is not configured",
			Paths: []string{dir},
		}
	}
	name = strings.NewReplacer("{layer}", layer.String(), "{directive}", directive.String()).Replace(name)

	path := filepath.Join(dir, name)
	return SchemaPath{Path: path, Exists: r.isFile(path)}, nil
}

// SchemaNotFound builds the error reported for a missing schema file.
func SchemaNotFound(path string) error {
	return &core.Error{
		Kind:  core.KindSchemaFileNotFound,
		Msg:   fmt.Sprintf("schema path was computed correctly, but the schema file does not exist yet: prepare %s", path),
		Paths: []string{path},
	}
}

func (r *Resolver) directory(base, label string, directive params.Directive, layer params.Layer) (string, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" || strings.ContainsRune(base, 0) {
		return "", &core.Error{
			Kind:  core.KindBaseDirectoryNotFound,
			Msg:   label + " base directory is empty or malformed",
			Value: base,
		}
	}
	if directive.IsZero() || layer.IsZero() {
		return "", &core.Error{
			Kind: core.KindInvalidDirective,
			Msg:  "directive and layer must be validated before path resolution",
		}
	}

	root := trimmed
	if !filepath.IsAbs(root) && r.opts.WorkingDir != "" {
		root = filepath.Join(r.opts.WorkingDir, root)
	}
	return filepath.Join(root, directive.String(), layer.String()), nil
}

func (r *Resolver) isFile(path string) bool {
	info, err := r.opts.Stat(path)
	return err == nil && !info.IsDir()
}

func filename(sourceLayer, adaptation, ext string) string {
	name := "f_" + sourceLayer
	if adaptation != "" {
		name += "_" + adaptation
	}
	return name + ext
}

func missingMessage(attempted, fallback string, fallbackExists bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "the prompt path was computed correctly: %s. ", attempted)
	b.WriteString("The file at that path does not exist yet and must be prepared (file not prepared).")
	if fallback != attempted {
		fmt.Fprintf(&b, " Using fallback %s", fallback)
		if !fallbackExists {
			b.WriteString(", which is not prepared either")
		}
		b.WriteString(".")
	}
	return b.String()
}

func dedupe(paths ...string) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
