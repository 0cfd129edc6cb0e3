package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/layerprompt/layerprompt/internal/core"
	"github.com/layerprompt/layerprompt/internal/core/params"
	"github.com/layerprompt/layerprompt/internal/core/pathres"
	"github.com/layerprompt/layerprompt/internal/core/profile"
	"github.com/layerprompt/layerprompt/internal/core/template"
	"github.com/layerprompt/layerprompt/internal/core/variables"
)

// Logger is the subset of the structured logger the pipeline uses.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

// Pipeline runs validation, path resolution, materialization and rendering
// strictly in sequence. It holds no state between runs.
type Pipeline struct {
	Profiles *profile.Resolver
	Stat     pathres.StatFunc
	ReadFile variables.ReadFileFunc
	Logger   Logger
}

// Request is one invocation.
type Request struct {
	Profile     string
	Directive   string
	Layer       string
	SourceLayer string
	Variables   variables.Args
	Strict      bool
}

// Resolution is the outcome of the path-resolution half of the pipeline.
type Resolution struct {
	Profile  string              `json:"profile"`
	Template pathres.ResolvedPath `json:"template"`
	Schema   *pathres.SchemaPath  `json:"schema,omitempty"`

	workingDir string
}

// Outcome is a fully rendered prompt with the values that produced it.
type Outcome struct {
	Resolution
	Prompt    string                          `json:"prompt"`
	Variables variables.MaterializedVariables `json:"variables"`
	Params    map[string]string               `json:"params"`
	Missing   []string                        `json:"missing,omitempty"`
}

// Resolve validates the directive/layer pair and resolves the template path
// (and the schema path when requested).
func (p *Pipeline) Resolve(ctx context.Context, req Request) (Resolution, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := p.logger()

	prof, err := p.Profiles.Resolve(ctx, req.Profile)
	if err != nil {
		return Resolution{}, err
	}
	log.Debug("Profile resolved",
		zap.String("profile", prof.Name),
		zap.String("prompt_base_dir", prof.PromptBaseDir),
		zap.String("schema_base_dir", prof.SchemaBaseDir))

	directivePattern, layerPattern, err := prof.Patterns()
	if err != nil {
		return Resolution{}, &core.Error{Kind: core.KindProfileNotFound, Msg: "profile has invalid patterns", Value: prof.Name, Err: err}
	}
	directive, err := params.NewDirective(req.Directive, directivePattern)
	if err != nil {
		return Resolution{}, err
	}
	layer, err := params.NewLayer(req.Layer, layerPattern)
	if err != nil {
		return Resolution{}, err
	}
	if err := params.CheckCombination(directive, layer, prof.Combinations); err != nil {
		return Resolution{}, err
	}

	var sourceLayer params.Layer
	if req.SourceLayer != "" {
		sourceLayer, err = params.NewLayer(req.SourceLayer, layerPattern)
		if err != nil {
			return Resolution{}, err
		}
	}
	adaptationPattern, err := prof.AdaptationRegexp()
	if err != nil {
		return Resolution{}, &core.Error{Kind: core.KindProfileNotFound, Msg: "profile has invalid patterns", Value: prof.Name, Err: err}
	}
	adaptation, err := params.NewAdaptation(strings.TrimSpace(req.Variables.Adaptation), adaptationPattern)
	if err != nil {
		return Resolution{}, err
	}

	resolver := pathres.New(pathres.Options{
		PromptBaseDir:     prof.PromptBaseDir,
		SchemaBaseDir:     prof.SchemaBaseDir,
		SchemaFilename:    prof.SchemaFilename,
		WorkingDir:        prof.WorkingDir,
		FallbackMustExist: prof.FallbackMustExist,
		Stat:              p.Stat,
	})
	out := Resolution{Profile: prof.Name, workingDir: prof.WorkingDir}

	resolved, err := resolver.Resolve(pathres.Request{
		Directive:   directive,
		Layer:       layer,
		Adaptation:  adaptation,
		SourceLayer: sourceLayer,
	})
	out.Template = resolved
	if err != nil {
		return out, err
	}
	log.Debug("Template path resolved",
		zap.String("status", string(resolved.Status)),
		zap.String("path", resolved.Path),
		zap.String("attempted", resolved.AttemptedPath))

	if req.Variables.UseSchema {
		schema, err := resolver.ResolveSchema(directive, layer)
		if err != nil {
			return out, err
		}
		out.Schema = &schema
		log.Debug("Schema path resolved", zap.String("path", schema.Path), zap.Bool("exists", schema.Exists))
	}

	return out, nil
}

// Run executes the whole pipeline and returns the rendered prompt.
func (p *Pipeline) Run(ctx context.Context, req Request) (Outcome, error) {
	log := p.logger()

	res, err := p.Resolve(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Resolution: res}
	resolved := res.Template

	if resolved.Status == pathres.StatusFallback {
		log.Warn(resolved.Message,
			zap.String("attempted", resolved.AttemptedPath),
			zap.String("fallback", resolved.Path))
		if !resolved.FallbackExists {
			return out, &core.Error{
				Kind:  core.KindTemplateFileNotFound,
				Msg:   resolved.Message,
				Value: resolved.Directive + "/" + resolved.Layer,
				Paths: attemptedPaths(resolved),
			}
		}
	}

	var schema pathres.SchemaPath
	if res.Schema != nil {
		schema = *res.Schema
	}

	materializer := &variables.Materializer{WorkingDir: res.workingDir, ReadFile: p.readFile()}
	vars, err := materializer.Materialize(variables.Collect(req.Variables), resolved, schema)
	if err != nil {
		return out, err
	}
	out.Variables = vars
	out.Params = variables.Flatten(vars)
	log.Debug("Variables materialized",
		zap.String("input_source", string(vars.InputSource)),
		zap.Int("input_chars", len(vars.InputContent)),
		zap.Int("custom", len(vars.Custom)))

	data, err := p.readFile()(resolved.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, &core.Error{
				Kind:  core.KindTemplateFileNotFound,
				Msg:   "the prompt path was computed correctly, but the file does not exist yet (file not prepared)",
				Value: resolved.Directive + "/" + resolved.Layer,
				Paths: attemptedPaths(resolved),
				Err:   err,
			}
		}
		return out, &core.Error{Kind: core.KindFileReadError, Msg: "prompt template could not be read", Value: resolved.Path, Paths: []string{resolved.Path}, Err: err}
	}

	tpl, err := template.Parse(resolved.Path, data)
	if err != nil {
		return out, &core.Error{Kind: core.KindFileReadError, Msg: "prompt template could not be parsed", Value: resolved.Path, Paths: []string{resolved.Path}, Err: err}
	}
	if err := tpl.CheckRequired(out.Params); err != nil {
		return out, err
	}

	rendered, err := template.Render(tpl.Body, out.Params, req.Strict)
	if err != nil {
		return out, fmt.Errorf("render %s: %w", resolved.Path, err)
	}
	if len(rendered.Missing) > 0 {
		log.Debug("Template placeholders left unresolved",
			zap.String("template", resolved.Path),
			zap.String("missing", strings.Join(rendered.Missing, ",")))
	}

	out.Prompt = rendered.Text
	out.Missing = rendered.Missing
	return out, nil
}

func (p *Pipeline) logger() Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *Pipeline) readFile() variables.ReadFileFunc {
	if p.ReadFile == nil {
		return os.ReadFile
	}
	return p.ReadFile
}

func attemptedPaths(resolved pathres.ResolvedPath) []string {
	if resolved.AttemptedPath == resolved.Path || resolved.Path == "" {
		return []string{resolved.AttemptedPath}
	}
	return []string{resolved.AttemptedPath, resolved.Path}
}
