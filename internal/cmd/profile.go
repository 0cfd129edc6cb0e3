package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/layerprompt/layerprompt/internal/config"
	"github.com/layerprompt/layerprompt/internal/core/profile"
	"github.com/layerprompt/layerprompt/internal/output"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect configuration profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(mustString(cmd, "output"))
		if err != nil {
			return err
		}
		profiles, err := listProfiles(cmd, currentConfig())
		if err != nil {
			return err
		}
		rendered, err := output.NewFormatter(format).FormatProfiles(profiles)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return err
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a resolved profile as YAML",
	Long:  "Show a resolved profile. Without a name, the configured default (or the built-in profile) is shown.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := currentConfig()
		name := cfg.Profiles.Default
		if len(args) == 1 {
			name = strings.TrimSpace(args[0])
		}

		resolver := profile.NewResolver(profile.NewFileLoader(config.ResolveProfilesDir(cfg.Profiles.Dir)))
		resolved, err := resolver.Resolve(cmd.Context(), name)
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(resolved)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileListCmd.Flags().StringP("output", "o", "table", "Output format: table, json, markdown")
}

// listProfiles returns the built-in profile followed by every profile file,
// each resolved with its overlay. A file named default shadows the built-in.
func listProfiles(cmd *cobra.Command, cfg *config.Config) ([]profile.Profile, error) {
	loader := profile.NewFileLoader(config.ResolveProfilesDir(cfg.Profiles.Dir))
	names, err := loader.List()
	if err != nil {
		return nil, err
	}

	resolver := profile.NewResolver(loader)
	var profiles []profile.Profile
	if !slices.Contains(names, profile.DefaultName) {
		profiles = append(profiles, profile.Default())
	}
	for _, name := range names {
		resolved, err := resolver.Resolve(cmd.Context(), name)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, resolved)
	}
	return profiles, nil
}
