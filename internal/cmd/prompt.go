package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/layerprompt/layerprompt/internal/config"
	"github.com/layerprompt/layerprompt/internal/core"
	"github.com/layerprompt/layerprompt/internal/core/engine"
	"github.com/layerprompt/layerprompt/internal/core/profile"
	"github.com/layerprompt/layerprompt/internal/core/variables"
	"github.com/layerprompt/layerprompt/internal/observability"
)

// promptStdin is read as input text when it is not a terminal.
var promptStdin = os.Stdin

// promptFlags holds the parsed flags shared by the prompt and resolve commands.
type promptFlags struct {
	Profile     string
	FromFile    string
	Destination string
	SourceLayer string
	Adaptation  string
	UseSchema   bool
	Vars        []string
	Strict      bool
	strictSet   bool
}

func addResolveFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("profile", "p", "", "Configuration profile (defaults to profiles.default, then the built-in profile)")
	cmd.Flags().StringP("input", "i", "", "Source layer used for the template filename (defaults to the layer)")
	cmd.Flags().StringP("adaptation", "a", "", "Template variant; falls back to the plain template when missing")
	cmd.Flags().Bool("use-schema", false, "Resolve and embed the schema file for the directive/layer")
}

func addPromptFlags(cmd *cobra.Command) {
	addResolveFlags(cmd)
	cmd.Flags().StringP("from", "f", "", "Input file (takes precedence over piped stdin)")
	cmd.Flags().StringP("destination", "d", "", "Destination file path made available to the template")
	cmd.Flags().StringArrayP("var", "V", nil, "Custom variable as key=value (repeatable)")
	cmd.Flags().Bool("strict", false, "Fail when a placeholder has no value")
}

// readPromptFlags reads whichever prompt flags cmd defines.
func readPromptFlags(cmd *cobra.Command) (promptFlags, error) {
	var (
		out promptFlags
		err error
	)
	flags := cmd.Flags()

	strs := map[string]*string{
		"profile":     &out.Profile,
		"input":       &out.SourceLayer,
		"adaptation":  &out.Adaptation,
		"from":        &out.FromFile,
		"destination": &out.Destination,
	}
	for name, target := range strs {
		if flags.Lookup(name) == nil {
			continue
		}
		if *target, err = flags.GetString(name); err != nil {
			return out, err
		}
	}
	if out.UseSchema, err = flags.GetBool("use-schema"); err != nil {
		return out, err
	}
	if flags.Lookup("var") != nil {
		if out.Vars, err = flags.GetStringArray("var"); err != nil {
			return out, err
		}
	}
	if flags.Lookup("strict") != nil {
		if out.Strict, err = flags.GetBool("strict"); err != nil {
			return out, err
		}
		out.strictSet = flags.Changed("strict")
	}
	return out, nil
}

// request builds the pipeline request. Config supplies the profile and the
// strict default when the flags leave them unset.
func (f promptFlags) request(directive, layer string, cfg *config.Config) engine.Request {
	profileName := strings.TrimSpace(f.Profile)
	if profileName == "" {
		profileName = cfg.Profiles.Default
	}
	strict := f.Strict
	if !f.strictSet {
		strict = cfg.Render.Strict
	}
	return engine.Request{
		Profile:     profileName,
		Directive:   directive,
		Layer:       layer,
		SourceLayer: f.SourceLayer,
		Strict:      strict,
		Variables: variables.Args{
			FromFile:    f.FromFile,
			Destination: f.Destination,
			Adaptation:  f.Adaptation,
			UseSchema:   f.UseSchema,
			Vars:        f.Vars,
		},
	}
}

// explainProfile names the configuration as the origin of a profile that
// could not be loaded when --profile was not given.
func (f promptFlags) explainProfile(err error, cfg *config.Config) error {
	if strings.TrimSpace(f.Profile) != "" || strings.TrimSpace(cfg.Profiles.Default) == "" {
		return err
	}
	if !core.IsKind(err, core.KindProfileNotFound) {
		return err
	}
	prefix := "LAYERPROMPT_"
	if appIdentity != nil && appIdentity.EnvPrefix != "" {
		prefix = appIdentity.EnvPrefix
	}
	return fmt.Errorf("profile %q was selected by profiles.default (config file or %sPROFILE), not --profile: %w",
		cfg.Profiles.Default, prefix, err)
}

func newPipeline(cfg *config.Config) *engine.Pipeline {
	dir := config.ResolveProfilesDir(cfg.Profiles.Dir)
	p := &engine.Pipeline{Profiles: profile.NewResolver(profile.NewFileLoader(dir))}
	if observability.CLILogger != nil {
		p.Logger = observability.CLILogger
	}
	return p
}

// positional returns directive and layer. A missing layer is passed through
// empty so validation reports it.
func positional(args []string) (string, string) {
	var directive, layer string
	if len(args) > 0 {
		directive = args[0]
	}
	if len(args) > 1 {
		layer = args[1]
	}
	return directive, layer
}

func runPrompt(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	flags, err := readPromptFlags(cmd)
	if err != nil {
		return err
	}
	cfg := currentConfig()
	directive, layer := positional(args)
	req := flags.request(directive, layer, cfg)

	if variables.IsPiped(promptStdin) {
		text, err := variables.ReadStdin(ctx, promptStdin, cfg.Stdin.Timeout)
		if err != nil {
			return err
		}
		req.Variables.Stdin = text
		req.Variables.StdinPresent = true
	}

	out, err := newPipeline(cfg).Run(ctx, req)
	if err != nil {
		return flags.explainProfile(err, cfg)
	}
	if observability.CLILogger != nil {
		observability.CLILogger.Debug("Prompt rendered",
			zap.String("template", out.Template.Path),
			zap.String("status", string(out.Template.Status)),
			zap.Int("chars", len(out.Prompt)))
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), out.Prompt)
	return err
}
