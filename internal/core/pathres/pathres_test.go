package pathres

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layerprompt/layerprompt/internal/core"
	"github.com/layerprompt/layerprompt/internal/core/params"
)

type fakeInfo struct {
	name string
	dir  bool
}

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return 0 }
func (f fakeInfo) Mode() fs.FileMode  { return 0o644 }
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return f.dir }
func (f fakeInfo) Sys() any           { return nil }

// snapshot fakes a file system containing exactly the listed files.
func snapshot(files ...string) StatFunc {
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[filepath.Clean(f)] = true
	}
	return func(name string) (fs.FileInfo, error) {
		if set[filepath.Clean(name)] {
			return fakeInfo{name: filepath.Base(name)}, nil
		}
		return nil, fs.ErrNotExist
	}
}

func mustValues(t *testing.T, directive, layer string) (params.Directive, params.Layer) {
	t.Helper()
	d, err := params.NewDirective(directive, regexp.MustCompile(`^(to|summary|defect)$`))
	require.NoError(t, err)
	l, err := params.NewLayer(layer, regexp.MustCompile(`^(project|issue|task)$`))
	require.NoError(t, err)
	return d, l
}

func mustAdaptation(t *testing.T, raw string) params.Adaptation {
	t.Helper()
	a, err := params.NewAdaptation(raw, regexp.MustCompile(params.DefaultAdaptationPattern))
	require.NoError(t, err)
	return a
}

func mustLayer(t *testing.T, raw string) params.Layer {
	t.Helper()
	_, l := mustValues(t, "to", raw)
	return l
}

func TestResolveFoundLiteralPath(t *testing.T) {
	d, l := mustValues(t, "to", "project")
	r := New(Options{PromptBaseDir: "prompts", Stat: snapshot("prompts/to/project/f_project.md")})

	got, err := r.Resolve(Request{Directive: d, Layer: l})
	require.NoError(t, err)
	assert.Equal(t, StatusFound, got.Status)
	assert.Equal(t, "prompts/to/project/f_project.md", got.Path)
	assert.Equal(t, got.Path, got.AttemptedPath)
	assert.Equal(t, "project", got.SourceLayer)
	assert.Empty(t, got.Message)
	assert.Equal(t, []State{StateBuildingDirectory, StateAssigningFilename, StateCheckingExistence, StateFound}, got.Trace)
}

func TestResolveFallbackDropsAdaptation(t *testing.T) {
	d, l := mustValues(t, "to", "project")
	r := New(Options{PromptBaseDir: "prompts", Stat: snapshot("prompts/to/project/f_project.md")})

	got, err := r.Resolve(Request{Directive: d, Layer: l, Adaptation: mustAdaptation(t, "detailed")})
	require.NoError(t, err)
	assert.Equal(t, StatusFallback, got.Status)
	assert.Equal(t, "prompts/to/project/f_project.md", got.Path)
	assert.Equal(t, "prompts/to/project/f_project_detailed.md", got.AttemptedPath)
	assert.True(t, got.FallbackExists)
	assert.Equal(t, "detailed", got.Adaptation)
	assert.Contains(t, got.Message, "prompts/to/project/f_project_detailed.md")
	assert.Contains(t, got.Message, "computed correctly")
	assert.Contains(t, got.Message, "file not prepared")
	assert.Equal(t, StateFallback, got.Trace[len(got.Trace)-1])
}

func TestResolveFoundAdaptation(t *testing.T) {
	d, l := mustValues(t, "summary", "issue")
	r := New(Options{PromptBaseDir: "prompts", Stat: snapshot(
		"prompts/summary/issue/f_issue.md",
		"prompts/summary/issue/f_issue_strict.md",
	)})

	got, err := r.Resolve(Request{Directive: d, Layer: l, Adaptation: mustAdaptation(t, "strict")})
	require.NoError(t, err)
	assert.Equal(t, StatusFound, got.Status)
	assert.Equal(t, "prompts/summary/issue/f_issue_strict.md", got.Path)
}

func TestResolveSourceLayerOverride(t *testing.T) {
	d, l := mustValues(t, "to", "issue")
	r := New(Options{PromptBaseDir: "prompts", Stat: snapshot("prompts/to/issue/f_project.md")})

	got, err := r.Resolve(Request{Directive: d, Layer: l, SourceLayer: mustLayer(t, "project")})
	require.NoError(t, err)
	assert.Equal(t, StatusFound, got.Status)
	assert.Equal(t, "prompts/to/issue/f_project.md", got.Path)
	assert.Equal(t, "project", got.SourceLayer)
	assert.Equal(t, "issue", got.Layer)
}

func TestResolveMissingFallbackIsReturnedNotRecursed(t *testing.T) {
	d, l := mustValues(t, "defect", "task")
	r := New(Options{PromptBaseDir: "prompts", Stat: snapshot()})

	got, err := r.Resolve(Request{Directive: d, Layer: l, Adaptation: mustAdaptation(t, "deep")})
	require.NoError(t, err)
	assert.Equal(t, StatusFallback, got.Status)
	assert.Equal(t, "prompts/defect/task/f_task.md", got.Path)
	assert.False(t, got.FallbackExists)
	assert.Contains(t, got.Message, "not prepared either")
}

func TestResolveMissingFallbackFatalWhenConfigured(t *testing.T) {
	d, l := mustValues(t, "defect", "task")
	r := New(Options{PromptBaseDir: "prompts", FallbackMustExist: true, Stat: snapshot()})

	got, err := r.Resolve(Request{Directive: d, Layer: l, Adaptation: mustAdaptation(t, "deep")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrTemplateFileNotFound))
	assert.Equal(t, StatusError, got.Status)

	var typed *core.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, []string{
		"prompts/defect/task/f_task_deep.md",
		"prompts/defect/task/f_task.md",
	}, typed.Paths)
}

func TestResolveWithoutAdaptationMissing(t *testing.T) {
	d, l := mustValues(t, "to", "task")
	r := New(Options{PromptBaseDir: "prompts", Stat: snapshot()})

	got, err := r.Resolve(Request{Directive: d, Layer: l})
	require.NoError(t, err)
	assert.Equal(t, StatusFallback, got.Status)
	assert.Equal(t, got.AttemptedPath, got.Path)
	assert.NotContains(t, got.Message, "Using fallback")
}

func TestResolveDirectoryIsNotAFile(t *testing.T) {
	d, l := mustValues(t, "to", "task")
	stat := func(name string) (fs.FileInfo, error) {
		return fakeInfo{name: filepath.Base(name), dir: true}, nil
	}
	got, err := New(Options{PromptBaseDir: "prompts", Stat: stat}).Resolve(Request{Directive: d, Layer: l})
	require.NoError(t, err)
	assert.Equal(t, StatusFallback, got.Status)
}

func TestResolveBaseDirectory(t *testing.T) {
	d, l := mustValues(t, "to", "task")

	for _, base := range []string{"", "   ", "bad\x00dir"} {
		got, err := New(Options{PromptBaseDir: base, Stat: snapshot()}).Resolve(Request{Directive: d, Layer: l})
		require.Error(t, err, "base=%q", base)
		assert.True(t, errors.Is(err, core.ErrBaseDirectoryNotFound))
		assert.Equal(t, StatusError, got.Status)
	}

	// A base directory that does not exist on disk is not an error.
	got, err := New(Options{PromptBaseDir: "nowhere", Stat: snapshot()}).Resolve(Request{Directive: d, Layer: l})
	require.NoError(t, err)
	assert.Equal(t, StatusFallback, got.Status)
}

func TestResolveRejectsUnvalidatedValues(t *testing.T) {
	_, err := New(Options{PromptBaseDir: "prompts"}).Resolve(Request{})
	require.Error(t, err)
}

func TestResolveWorkingDir(t *testing.T) {
	d, l := mustValues(t, "to", "project")
	r := New(Options{
		PromptBaseDir: "prompts",
		WorkingDir:    "/repo",
		Stat:          snapshot("/repo/prompts/to/project/f_project.md"),
	})
	got, err := r.Resolve(Request{Directive: d, Layer: l})
	require.NoError(t, err)
	assert.Equal(t, "/repo/prompts/to/project/f_project.md", got.Path)

	abs := New(Options{PromptBaseDir: "/abs/prompts", WorkingDir: "/repo", Stat: snapshot()})
	got, err = abs.Resolve(Request{Directive: d, Layer: l})
	require.NoError(t, err)
	assert.Equal(t, "/abs/prompts/to/project/f_project.md", got.Path)
}

func TestResolveIsDeterministic(t *testing.T) {
	d, l := mustValues(t, "to", "project")
	stat := snapshot("prompts/to/project/f_project.md")

	for _, adaptation := range []string{"", "detailed"} {
		r := New(Options{PromptBaseDir: "prompts", Stat: stat})
		first, err1 := r.Resolve(Request{Directive: d, Layer: l, Adaptation: mustAdaptation(t, adaptation), SourceLayer: mustLayer(t, "project")})
		second, err2 := r.Resolve(Request{Directive: d, Layer: l, Adaptation: mustAdaptation(t, adaptation), SourceLayer: mustLayer(t, "project")})
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, first, second)
	}
}

func TestResolveAgainstRealFileSystem(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "prompts", "to", "project")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f_project.md"), []byte("x"), 0o600))

	d, l := mustValues(t, "to", "project")
	got, err := New(Options{PromptBaseDir: "prompts", WorkingDir: root}).Resolve(Request{Directive: d, Layer: l, Adaptation: mustAdaptation(t, "detailed")})
	require.NoError(t, err)
	assert.Equal(t, StatusFallback, got.Status)
	assert.Equal(t, filepath.Join(dir, "f_project.md"), got.Path)
}

func TestResolveSchema(t *testing.T) {
	d, l := mustValues(t, "to", "issue")

	r := New(Options{SchemaBaseDir: "schema", SchemaFilename: "base.schema.md", Stat: snapshot("schema/to/issue/base.schema.md")})
	got, err := r.ResolveSchema(d, l)
	require.NoError(t, err)
	assert.Equal(t, SchemaPath{Path: "schema/to/issue/base.schema.md", Exists: true}, got)

	derived := New(Options{SchemaBaseDir: "schema", SchemaFilename: "{layer}.schema.json", Stat: snapshot()})
	got, err = derived.ResolveSchema(d, l)
	require.NoError(t, err)
	assert.Equal(t, "schema/to/issue/issue.schema.json", got.Path)
	assert.False(t, got.Exists)

	_, err = New(Options{SchemaBaseDir: "", SchemaFilename: "x"}).ResolveSchema(d, l)
	assert.True(t, errors.Is(err, core.ErrBaseDirectoryNotFound))

	_, err = New(Options{SchemaBaseDir: "schema"}).ResolveSchema(d, l)
	assert.True(t, errors.Is(err, core.ErrSchemaFileNotFound))

	err = SchemaNotFound("schema/to/issue/base.schema.md")
	assert.True(t, errors.Is(err, core.ErrSchemaFileNotFound))
	assert.False(t, errors.Is(err, core.ErrTemplateFileNotFound))
}
