package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"

	"github.com/layerprompt/layerprompt/internal/appid"
)

var extended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for full details including Crucible and Go versions.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		writeVersion(cmd.OutOrStdout(), binaryName(cmd), extended)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
}

func binaryName(cmd *cobra.Command) string {
	if identity := GetAppIdentity(); identity != nil && identity.BinaryName != "" {
		return identity.BinaryName
	}
	return appid.BinaryName(cmd.Context())
}

func writeVersion(w io.Writer, name string, extended bool) {
	fmt.Fprintf(w, "%s %s\n", name, versionInfo.Version)
	if !extended {
		return
	}
	fmt.Fprintf(w, "Commit: %s\n", versionInfo.Commit)
	fmt.Fprintf(w, "Built: %s\n", versionInfo.BuildDate)
	fmt.Fprintf(w, "Go: %s\n", runtime.Version())
	fmt.Fprintf(w, "\n")

	version := crucible.GetVersion()
	fmt.Fprintf(w, "Gofulmen: %s\n", version.Gofulmen)
	fmt.Fprintf(w, "Crucible: %s\n", version.Crucible)
}
