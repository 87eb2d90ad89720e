package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const banner = `      _           _ _
  ___| |__   __ _/ | |__  _ __ _ __
 / __| '_ \ / _' | | '_ \| '__| '__|
 \__ \ | | | (_| | | |_) | |  | |
 |___/_| |_|\__,_|_|_.__/|_|  |_|   `

const commonUsageTemplate = `Usage:
  {{.CommandPath}} [command]

Available Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}

Use "{{.CommandPath}} [command] --help" for more information about a command.
`

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sha1brr",
		Short: "A tool to compute and verify SHA-1 digests",
		Long:  banner + "\n\nsha1brr computes SHA-1 digests of files, strings and stdin, checks\nsha1sum lists and verifies content against torrent piece hashes.",
	}

	cobra.EnableCommandSorting = false
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceUsage = false
	rootCmd.SetUsageTemplate(commonUsageTemplate)

	rootCmd.AddCommand(newSumCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newPiecesCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// ExecuteCLI builds the command tree and runs it until completion or an
// interrupt.
func ExecuteCLI() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

// Execute is kept as the entry point used by main.
func Execute() error {
	return ExecuteCLI()
}
