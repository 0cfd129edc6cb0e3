package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/layerprompt/layerprompt/internal/output"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <directive> <layer>",
	Short: "Show which template and schema files a prompt would use",
	Long: `Resolve the template path for a directive and a layer without reading
or rendering it. Missing files are reported with the path to prepare.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(mustString(cmd, "output"))
		if err != nil {
			return err
		}
		flags, err := readPromptFlags(cmd)
		if err != nil {
			return err
		}
		cfg := currentConfig()
		req := flags.request(args[0], args[1], cfg)

		res, err := newPipeline(cfg).Resolve(cmd.Context(), req)
		if err != nil {
			return flags.explainProfile(err, cfg)
		}
		rendered, err := output.NewFormatter(format).FormatResolution(res)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return err
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	addResolveFlags(resolveCmd)
	resolveCmd.Flags().StringP("output", "o", "table", "Output format: table, json, markdown")
}

func mustString(cmd *cobra.Command, name string) string {
	value, _ := cmd.Flags().GetString(name)
	return value
}
