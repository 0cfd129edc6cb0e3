package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layerprompt/layerprompt/internal/core"
	"github.com/layerprompt/layerprompt/internal/core/params"
)

type stubLoader struct {
	calls int
	load  func(string) (Profile, error)
}

func (s *stubLoader) Load(_ context.Context, name string) (Profile, error) {
	s.calls++
	if s.load == nil {
		return Profile{}, errors.New("not configured")
	}
	return s.load(name)
}

func writeProfile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestResolveEmptyNameReturnsDefaultWithoutLoader(t *testing.T) {
	loader := &stubLoader{}
	r := NewResolver(loader)

	for _, name := range []string{"", "   "} {
		p, err := r.Resolve(context.Background(), name)
		require.NoError(t, err)
		assert.Equal(t, Default(), p)
	}
	assert.Zero(t, loader.calls)

	var nilResolver *Resolver
	p, err := nilResolver.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "prompts", p.PromptBaseDir)
	assert.Equal(t, "schema", p.SchemaBaseDir)
}

func TestResolveNamedFailureIsNotSilent(t *testing.T) {
	loader := &stubLoader{load: func(string) (Profile, error) {
		return Profile{}, errors.New("boom")
	}}
	_, err := NewResolver(loader).Resolve(context.Background(), "staging")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrProfileNotFound))
	assert.Contains(t, err.Error(), "staging")
	assert.Contains(t, err.Error(), "boom")
}

func TestResolveValidatesLoadedProfile(t *testing.T) {
	loader := &stubLoader{load: func(name string) (Profile, error) {
		p := Default()
		p.Name = name
		p.PromptBaseDir = " "
		return p, nil
	}}
	_, err := NewResolver(loader).Resolve(context.Background(), "broken")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrBaseDirectoryNotFound))
}

func TestDefaultProfileIsValid(t *testing.T) {
	p := Default()
	require.NoError(t, p.Validate())

	directive, layer, err := p.Patterns()
	require.NoError(t, err)
	assert.True(t, directive.MatchString("to"))
	assert.True(t, directive.MatchString("find-defects"))
	assert.True(t, layer.MatchString("issue"))
	assert.False(t, layer.MatchString("epic"))

	adaptation, err := p.AdaptationRegexp()
	require.NoError(t, err)
	assert.True(t, adaptation.MatchString("detailed"))
	assert.False(t, adaptation.MatchString("a/b"))
}

func TestAdaptationRegexpDefaultsWhenUnset(t *testing.T) {
	p := Default()
	p.AdaptationPattern = ""
	re, err := p.AdaptationRegexp()
	require.NoError(t, err)
	assert.Equal(t, params.DefaultAdaptationPattern, re.String())

	p.AdaptationPattern = "("
	assert.True(t, errors.Is(p.Validate(), core.ErrProfileNotFound))
}

func TestFileLoaderKeepsDirectiveCaseInCombinations(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "mixed-app.yml", `
params:
  two:
    directive_type:
      pattern: "^(Convert|to)$"
  combinations:
    - directive: Convert
      layers: [project]
    - directive: Convert
      layers: [issue]
`)

	p, err := NewFileLoader(dir).Load(context.Background(), "mixed")
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"Convert": {"project", "issue"}}, p.Combinations)

	directive, layer, err := p.Patterns()
	require.NoError(t, err)
	d, err := params.NewDirective("Convert", directive)
	require.NoError(t, err)
	l, err := params.NewLayer("task", layer)
	require.NoError(t, err)
	assert.True(t, errors.Is(params.CheckCombination(d, l, p.Combinations), core.ErrUnsupportedCombination))
}

func TestFileLoaderRejectsMapCombinations(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "old-app.yml", "params:\n  combinations:\n    Convert: [project]\n")

	_, err := NewFileLoader(dir).Load(context.Background(), "old")
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindProfileNotFound))
	assert.Contains(t, err.Error(), "has no directive")
}

func TestFileLoaderMergesUserOverlay(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "team-app.yml", `
working_dir: /work
app_prompt:
  base_dir: team/prompts
app_schema:
  base_dir: team/schema
  filename: "{layer}.schema.json"
params:
  two:
    directive_type:
      pattern: "^(to|review)$"
    layer_type:
      pattern: "^(project|epic)$"
  adaptation:
    pattern: "^(brief|deep)$"
  combinations:
    - directive: review
      layers: [epic]
`)
	writeProfile(t, dir, "team-user.yml", `
app_prompt:
  base_dir: mine/prompts
fallback_must_exist: true
`)

	p, err := NewFileLoader(dir).Load(context.Background(), "team")
	require.NoError(t, err)

	assert.Equal(t, "team", p.Name)
	assert.False(t, p.IsBuiltin)
	assert.Equal(t, "mine/prompts", p.PromptBaseDir)
	assert.Equal(t, "team/schema", p.SchemaBaseDir)
	assert.Equal(t, "{layer}.schema.json", p.SchemaFilename)
	assert.Equal(t, "/work", p.WorkingDir)
	assert.Equal(t, "^(to|review)$", p.DirectivePattern)
	assert.Equal(t, "^(project|epic)$", p.LayerPattern)
	assert.Equal(t, "^(brief|deep)$", p.AdaptationPattern)
	assert.Equal(t, map[string][]string{"review": {"epic"}}, p.Combinations)
	assert.True(t, p.FallbackMustExist)
	assert.Len(t, p.Sources, 2)
}

func TestFileLoaderInheritsDefaults(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "lean-app.yml", "app_prompt:\n  base_dir: lean\n")

	p, err := NewFileLoader(dir).Load(context.Background(), "lean")
	require.NoError(t, err)
	assert.Equal(t, "lean", p.PromptBaseDir)
	assert.Equal(t, Default().SchemaBaseDir, p.SchemaBaseDir)
	assert.Equal(t, Default().LayerPattern, p.LayerPattern)
	assert.Equal(t, DefaultSchemaFilename, p.SchemaFilename)
	assert.False(t, p.FallbackMustExist)
}

func TestFileLoaderMissingProfile(t *testing.T) {
	dir := t.TempDir()
	_, err := NewResolver(NewFileLoader(dir)).Resolve(context.Background(), "ghost")
	require.Error(t, err)

	var typed *core.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, core.KindProfileNotFound, typed.Kind)
	assert.Equal(t, filepath.Join(dir, "ghost-app.yml"), typed.Path())
}

func TestFileLoaderRejectsTraversalNames(t *testing.T) {
	_, err := NewFileLoader(t.TempDir()).Load(context.Background(), "../etc")
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindProfileNotFound))
}

func TestFileLoaderInvalidPattern(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "bad-app.yml", "params:\n  two:\n    directive_type:\n      pattern: \"(\"\n")

	_, err := NewFileLoader(dir).Load(context.Background(), "bad")
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindProfileNotFound))
}

func TestFileLoaderList(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "zeta-app.yml", "{}\n")
	writeProfile(t, dir, "alpha-app.yml", "{}\n")
	writeProfile(t, dir, "alpha-user.yml", "{}\n")
	writeProfile(t, dir, "notes.txt", "x")

	names, err := NewFileLoader(dir).List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, names)
}
