package profile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/layerprompt/layerprompt/internal/core"
)

const (
	appSuffix  = "-app.yml"
	userSuffix = "-user.yml"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// FileLoader reads `{Dir}/{name}-app.yml` and overlays the optional
// `{Dir}/{name}-user.yml`. Fields missing from both inherit Default().
type FileLoader struct {
	Dir string
}

// combination restricts one directive to a set of layers. It is a list entry
// rather than a map key so the directive keeps its case through viper.
type combination struct {
	Directive string   `mapstructure:"directive"`
	Layers    []string `mapstructure:"layers"`
}

// fileProfile mirrors the on-disk profile layout.
type fileProfile struct {
	WorkingDir string `mapstructure:"working_dir"`
	AppPrompt  struct {
		BaseDir string `mapstructure:"base_dir"`
	} `mapstructure:"app_prompt"`
	AppSchema struct {
		BaseDir  string `mapstructure:"base_dir"`
		Filename string `mapstructure:"filename"`
	} `mapstructure:"app_schema"`
	Params struct {
		Two struct {
			DirectiveType struct {
				Pattern string `mapstructure:"pattern"`
			} `mapstructure:"directive_type"`
			LayerType struct {
				Pattern string `mapstructure:"pattern"`
			} `mapstructure:"layer_type"`
		} `mapstructure:"two"`
		Adaptation struct {
			Pattern string `mapstructure:"pattern"`
		} `mapstructure:"adaptation"`
		Combinations []combination `mapstructure:"combinations"`
	} `mapstructure:"params"`
	FallbackMustExist *bool `mapstructure:"fallback_must_exist"`
}

// NewFileLoader returns a loader rooted at dir.
func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{Dir: dir}
}

// Load reads and merges the files of the named profile.
func (l *FileLoader) Load(ctx context.Context, name string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	if !namePattern.MatchString(name) {
		return Profile{}, &core.Error{
			Kind:    core.KindProfileNotFound,
			Msg:     "invalid profile name",
			Value:   name,
			Pattern: namePattern.String(),
		}
	}

	appPath := filepath.Join(l.Dir, name+appSuffix)
	userPath := filepath.Join(l.Dir, name+userSuffix)

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(appPath)
	if err := v.ReadInConfig(); err != nil {
		if isNotExist(err) {
			return Profile{}, &core.Error{
				Kind:  core.KindProfileNotFound,
				Msg:   fmt.Sprintf("profile %q not found", name),
				Value: name,
				Paths: []string{appPath},
			}
		}
		return Profile{}, &core.Error{
			Kind:  core.KindProfileNotFound,
			Msg:   fmt.Sprintf("profile %q could not be parsed", name),
			Value: name,
			Paths: []string{appPath},
			Err:   err,
		}
	}

	sources := []string{appPath}
	if _, err := os.Stat(userPath); err == nil {
		v.SetConfigFile(userPath)
		if err := v.MergeInConfig(); err != nil {
			return Profile{}, &core.Error{
				Kind:  core.KindProfileNotFound,
				Msg:   fmt.Sprintf("profile %q user overlay could not be parsed", name),
				Value: name,
				Paths: []string{appPath, userPath},
				Err:   err,
			}
		}
		sources = append(sources, userPath)
	}

	var raw fileProfile
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &raw,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	})
	if err != nil {
		return Profile{}, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return Profile{}, &core.Error{
			Kind:  core.KindProfileNotFound,
			Msg:   fmt.Sprintf("profile %q has an invalid shape", name),
			Value: name,
			Paths: sources,
			Err:   err,
		}
	}

	for i, entry := range raw.Params.Combinations {
		if strings.TrimSpace(entry.Directive) == "" {
			return Profile{}, &core.Error{
				Kind:  core.KindProfileNotFound,
				Msg:   fmt.Sprintf("profile %q combination %d has no directive (expected a list of {directive, layers})", name, i),
				Value: name,
				Paths: sources,
			}
		}
	}

	p := raw.merge(Default())
	p.Name = name
	p.IsBuiltin = false
	p.Sources = sources
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// List returns the names of the profiles present in Dir, sorted.
func (l *FileLoader) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(l.Dir, "*"+appSuffix))
	if err != nil {
		return nil, fmt.Errorf("scan profiles: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, path := range matches {
		name := strings.TrimSuffix(filepath.Base(path), appSuffix)
		if namePattern.MatchString(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (raw fileProfile) merge(base Profile) Profile {
	p := base
	if v := strings.TrimSpace(raw.WorkingDir); v != "" {
		p.WorkingDir = v
	}
	if v := strings.TrimSpace(raw.AppPrompt.BaseDir); v != "" {
		p.PromptBaseDir = v
	}
	if v := strings.TrimSpace(raw.AppSchema.BaseDir); v != "" {
		p.SchemaBaseDir = v
	}
	if v := strings.TrimSpace(raw.AppSchema.Filename); v != "" {
		p.SchemaFilename = v
	}
	if v := raw.Params.Two.DirectiveType.Pattern; strings.TrimSpace(v) != "" {
		p.DirectivePattern = v
	}
	if v := raw.Params.Two.LayerType.Pattern; strings.TrimSpace(v) != "" {
		p.LayerPattern = v
	}
	if v := raw.Params.Adaptation.Pattern; strings.TrimSpace(v) != "" {
		p.AdaptationPattern = v
	}
	if len(raw.Params.Combinations) > 0 {
		p.Combinations = make(map[string][]string, len(raw.Params.Combinations))
		for _, entry := range raw.Params.Combinations {
			directive := strings.TrimSpace(entry.Directive)
			p.Combinations[directive] = append(p.Combinations[directive], entry.Layers...)
		}
	}
	if raw.FallbackMustExist != nil {
		p.FallbackMustExist = *raw.FallbackMustExist
	}
	return p
}

func isNotExist(err error) bool {
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound)
}
