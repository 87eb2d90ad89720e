package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/autobrr/sha1brr/internal/torrent"
	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	o := &commonOptions{}
	cmd := &cobra.Command{
		Use:   "verify <torrent-file> <content-path>",
		Short: "Verify the integrity of content against a torrent file",
		Long: `Checks if the data in the specified content path (file or directory) matches
the SHA-1 piece hashes in the torrent file. This is useful for verifying downloads
or checking data integrity after moving files.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, args, o)
		},
		DisableFlagsInUseLine:      true,
		SuggestionsMinimumDistance: 1,
		SilenceUsage:               true,
	}

	cmd.Flags().SortFlags = false
	addCommonFlags(cmd, o)
	cmd.SetUsageTemplate(`Usage:
  {{.CommandPath}} <torrent-file> <content-path> [flags]

Arguments:
  torrent-file   Path to the .torrent file
  content-path   Path to the directory or file containing the data

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}
`)
	return cmd
}

func runVerify(cmd *cobra.Command, args []string, o *commonOptions) error {
	torrentPath := args[0]
	contentPath := args[1]

	if _, err := os.Stat(torrentPath); err != nil {
		return fmt.Errorf("invalid torrent file path %q: %w", torrentPath, err)
	}
	if _, err := os.Stat(contentPath); err != nil {
		return fmt.Errorf("invalid content path %q: %w", contentPath, err)
	}

	ro, err := o.resolve(cmd)
	if err != nil {
		return err
	}

	start := time.Now()
	if !ro.quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nVerifying %s against %s...\n", filepath.Base(torrentPath), contentPath)
	}

	result, err := torrent.VerifyData(cmd.Context(), torrent.VerifyOptions{
		TorrentPath:   torrentPath,
		ContentPath:   contentPath,
		Provider:      ro.provider,
		Workers:       ro.workers,
		Display:       ro.display,
		LoggerFactory: ro.loggers,
	})
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	ro.display.ShowVerificationResult(result, time.Since(start))

	if result.BadPieces > 0 || result.MissingPieces > 0 || len(result.MissingFiles) > 0 {
		return fmt.Errorf("verification failed or incomplete")
	}
	return nil
}
