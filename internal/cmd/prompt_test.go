package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layerprompt/layerprompt/internal/config"
	"github.com/layerprompt/layerprompt/internal/core"
	"github.com/layerprompt/layerprompt/internal/core/variables"
)

func newPromptCommand() *cobra.Command {
	c := &cobra.Command{Use: "layerprompt", Args: cobra.RangeArgs(0, 2), RunE: runPrompt, SilenceUsage: true, SilenceErrors: true}
	addPromptFlags(c)
	return c
}

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(nil, "")
	require.NoError(t, err)
	return cfg
}

// inDir switches the working directory for the rest of the test.
func inDir(t *testing.T, dir string) {
	t.Helper()
	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWD) })
}

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func withStdin(t *testing.T, f *os.File) {
	t.Helper()
	old := promptStdin
	promptStdin = f
	t.Cleanup(func() { promptStdin = old })
}

func TestPromptFlagsToRequest(t *testing.T) {
	c := newPromptCommand()
	require.NoError(t, c.ParseFlags([]string{
		"--from", "notes.md",
		"-d", "out/issue.md",
		"-i", "project",
		"-a", "detailed",
		"-p", "team",
		"--use-schema",
		"-V", "company=Acme, Inc.",
		"--var", "owner=alice",
		"--strict",
	}))

	flags, err := readPromptFlags(c)
	require.NoError(t, err)
	req := flags.request("summary", "issue", defaultConfig(t))

	assert.Equal(t, "team", req.Profile)
	assert.Equal(t, "summary", req.Directive)
	assert.Equal(t, "issue", req.Layer)
	assert.Equal(t, "project", req.SourceLayer)
	assert.True(t, req.Strict)
	assert.Equal(t, variables.Args{
		FromFile:    "notes.md",
		Destination: "out/issue.md",
		Adaptation:  "detailed",
		UseSchema:   true,
		Vars:        []string{"company=Acme, Inc.", "owner=alice"},
	}, req.Variables)
}

func TestPromptFlagsFallBackToConfig(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Profiles.Default = "team"
	cfg.Render.Strict = true

	c := newPromptCommand()
	require.NoError(t, c.ParseFlags(nil))
	flags, err := readPromptFlags(c)
	require.NoError(t, err)
	req := flags.request("to", "task", cfg)
	assert.Equal(t, "team", req.Profile)
	assert.True(t, req.Strict)

	c = newPromptCommand()
	require.NoError(t, c.ParseFlags([]string{"--strict=false", "--profile", "solo"}))
	flags, err = readPromptFlags(c)
	require.NoError(t, err)
	req = flags.request("to", "task", cfg)
	assert.Equal(t, "solo", req.Profile)
	assert.False(t, req.Strict)
}

func TestPositional(t *testing.T) {
	d, l := positional([]string{"to"})
	assert.Equal(t, "to", d)
	assert.Empty(t, l)

	d, l = positional([]string{"to", "project"})
	assert.Equal(t, "to", d)
	assert.Equal(t, "project", l)
}

func TestRunPromptRendersToStdout(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "prompts/to/project/f_project.md", "Plan for {{company}}:\n{{input_text}}\n")
	writeFile(t, root, "notes.md", "ship it")
	inDir(t, root)
	withStdin(t, nil)

	c := newPromptCommand()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetArgs([]string{"to", "project", "--from", "notes.md", "-V", "company=Acme"})
	require.NoError(t, c.ExecuteContext(context.Background()))

	assert.Equal(t, "Plan for Acme:\nship it\n", out.String())
}

func TestRunPromptReadsPipedStdin(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "prompts/summary/issue/f_issue.md", "[{{inputSource}}] {{input_text}}")
	writeFile(t, root, "stdin.txt", "from the pipe")
	inDir(t, root)

	f, err := os.Open(filepath.Join(root, "stdin.txt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	withStdin(t, f)

	c := newPromptCommand()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetArgs([]string{"summary", "issue"})
	require.NoError(t, c.ExecuteContext(context.Background()))

	assert.Equal(t, "[stdin] from the pipe", out.String())
}

func TestRunPromptErrorsAreTyped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "prompts/to/task/f_task.md", "{{input_text}}")
	inDir(t, root)
	withStdin(t, nil)

	cases := []struct {
		name string
		args []string
		want error
	}{
		{name: "invalid directive", args: []string{"explode", "project"}, want: core.ErrInvalidDirective},
		{name: "missing layer", args: []string{"to"}, want: core.ErrInvalidLayer},
		{name: "template not prepared", args: []string{"to", "project"}, want: core.ErrTemplateFileNotFound},
		{name: "unknown profile", args: []string{"to", "project", "-p", "ghost"}, want: core.ErrProfileNotFound},
		{name: "bad custom variable", args: []string{"to", "task", "-V", "=x"}, want: core.ErrInvalidCustomVariable},
		{name: "source layer outside layer pattern", args: []string{"to", "task", "-i", "../../secret"}, want: core.ErrInvalidLayer},
		{name: "adaptation with path separators", args: []string{"to", "task", "-a", "x/../../secret"}, want: core.ErrInvalidAdaptation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newPromptCommand()
			var out bytes.Buffer
			c.SetOut(&out)
			c.SetArgs(tc.args)
			err := c.ExecuteContext(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.Empty(t, out.String())
		})
	}
}

func TestRunPromptNamesConfiguredProfile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "prompts/to/task/f_task.md", "x")
	inDir(t, root)
	withStdin(t, nil)

	cfg := defaultConfig(t)
	cfg.Profiles.Default = "ghost"
	old := appConfig
	appConfig = cfg
	t.Cleanup(func() { appConfig = old })

	c := newPromptCommand()
	c.SetOut(&bytes.Buffer{})
	c.SetArgs([]string{"to", "task"})
	err := c.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrProfileNotFound))
	assert.Contains(t, err.Error(), `profile "ghost" was selected by profiles.default`)
	assert.Contains(t, err.Error(), "PROFILE")

	c = newPromptCommand()
	c.SetOut(&bytes.Buffer{})
	c.SetArgs([]string{"to", "task", "-p", "ghost"})
	err = c.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "profiles.default")
}

func TestRunPromptWithoutArgsShowsHelp(t *testing.T) {
	c := newPromptCommand()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetArgs(nil)
	require.NoError(t, c.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Usage:")
}
