package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/layerprompt/layerprompt/internal/config"
	"github.com/layerprompt/layerprompt/internal/core/profile"
	errwrap "github.com/layerprompt/layerprompt/internal/errors"
	"github.com/layerprompt/layerprompt/internal/observability"
)

type checkStatus string

const (
	checkOK   checkStatus = "ok"
	checkWarn checkStatus = "warn"
	checkFail checkStatus = "fail"
)

type doctorCheck struct {
	Name   string
	Status checkStatus
	Detail string
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Check the configuration, the profile directory and the prompt/schema base directories of every profile.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		checks := collectDoctorChecks(cmd.Context(), currentConfig(), configNameForDoctor())

		log.Info("=== " + binaryName(cmd) + " doctor ===")
		failed := 0
		for i, c := range checks {
			line := fmt.Sprintf("[%d/%d] %s... %s", i+1, len(checks), c.Name, c.Detail)
			switch c.Status {
			case checkOK:
				log.Info(line, zap.String("check", c.Name))
			case checkWarn:
				log.Warn(line, zap.String("check", c.Name))
			default:
				failed++
				log.Error(line, zap.String("check", c.Name))
			}
		}

		if failed > 0 {
			ExitWithCode(log, foundry.ExitFailure, "Some checks failed",
				errwrap.NewValidationError(fmt.Sprintf("%d doctor checks failed", failed)))
		}
		log.Info("All checks passed")
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func configNameForDoctor() string {
	if identity := GetAppIdentity(); identity != nil && identity.ConfigName != "" {
		return identity.ConfigName
	}
	return "layerprompt"
}

func collectDoctorChecks(ctx context.Context, cfg *config.Config, configName string) []doctorCheck {
	var checks []doctorCheck

	version := crucible.GetVersion()
	if version.Gofulmen != "" && version.Crucible != "" {
		checks = append(checks, doctorCheck{"Gofulmen/Crucible", checkOK, fmt.Sprintf("gofulmen %s, crucible %s", version.Gofulmen, version.Crucible)})
	} else {
		checks = append(checks, doctorCheck{"Gofulmen/Crucible", checkFail, "version information unavailable"})
	}

	switch path := config.DefaultConfigPath(configName); {
	case path == "":
		checks = append(checks, doctorCheck{"Config file", checkWarn, "config directory could not be resolved"})
	case fileExists(path):
		checks = append(checks, doctorCheck{"Config file", checkOK, path})
	default:
		checks = append(checks, doctorCheck{"Config file", checkWarn, path + " (not created, defaults in use)"})
	}

	dir := config.ResolveProfilesDir(cfg.Profiles.Dir)
	loader := profile.NewFileLoader(dir)
	names, err := loader.List()
	switch {
	case err != nil:
		checks = append(checks, doctorCheck{"Profile directory", checkFail, err.Error()})
	case !dirExists(dir):
		checks = append(checks, doctorCheck{"Profile directory", checkWarn, dir + " (missing, only the built-in profile is available)"})
	default:
		checks = append(checks, doctorCheck{"Profile directory", checkOK, fmt.Sprintf("%s (%d profiles)", dir, len(names))})
	}

	resolver := profile.NewResolver(loader)
	targets := append([]string{""}, names...)
	for _, name := range targets {
		label := "Profile " + name
		if name == "" {
			label = "Profile " + profile.DefaultName + " (built-in)"
		}
		p, err := resolver.Resolve(ctx, name)
		if err != nil {
			checks = append(checks, doctorCheck{label, checkFail, err.Error()})
			continue
		}
		checks = append(checks, baseDirCheck(label+" prompts", p.WorkingDir, p.PromptBaseDir))
		checks = append(checks, baseDirCheck(label+" schemas", p.WorkingDir, p.SchemaBaseDir))
	}
	return checks
}

func baseDirCheck(name, workingDir, base string) doctorCheck {
	path := base
	if workingDir != "" && !filepath.IsAbs(base) {
		path = filepath.Join(workingDir, base)
	}
	if dirExists(path) {
		return doctorCheck{name, checkOK, path}
	}
	return doctorCheck{name, checkWarn, path + " (not prepared)"}
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func dirExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}
