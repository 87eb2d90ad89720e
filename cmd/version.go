package cmd

import (
	"fmt"

	"github.com/autobrr/sha1brr/internal/sha1"
	"github.com/spf13/cobra"
)

var (
	version   string
	buildTime string
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sha1brr version: %s\n", version)
			if buildTime != "" && buildTime != "unknown" {
				fmt.Fprintf(out, "Build Time:      %s\n", buildTime)
			}
			fmt.Fprintf(out, "SHA-1 provider:  %s (native available: %v)\n", sha1.Default(), sha1.NativeAvailable())
		},
		DisableFlagsInUseLine: true,
	}
	cmd.SetUsageTemplate(`Usage:
  {{.CommandPath}}

Prints the version, build time and SHA-1 provider information for sha1brr.
`)
	return cmd
}

func SetVersion(v, bt string) {
	version = v
	buildTime = bt
}
