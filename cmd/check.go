package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/autobrr/sha1brr/internal/checksum"
	"github.com/spf13/cobra"
)

type checkOptions struct {
	commonOptions
	strict        bool
	ignoreMissing bool
}

func newCheckCmd() *cobra.Command {
	o := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check <checksum-file>",
		Short: "Verify files against a sha1sum checksum list",
		Long: `Reads SHA-1 checksums from the given list and checks them. Both the GNU
("<digest>  <file>") and BSD ("SHA1 (<file>) = <digest>") formats are
accepted. Use - to read the list from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, o)
		},
		DisableFlagsInUseLine:      true,
		SuggestionsMinimumDistance: 1,
		SilenceUsage:               true,
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().BoolVar(&o.strict, "strict", false, "exit non-zero for improperly formatted checksum lines")
	cmd.Flags().BoolVar(&o.ignoreMissing, "ignore-missing", false, "don't fail or report status for missing files")
	addCommonFlags(cmd, &o.commonOptions)
	cmd.SetUsageTemplate(`Usage:
  {{.CommandPath}} <checksum-file> [flags]

Arguments:
  checksum-file   Path to the checksum list, or - for standard input

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}
`)
	return cmd
}

func runCheck(cmd *cobra.Command, args []string, o *checkOptions) error {
	ro, err := o.resolve(cmd)
	if err != nil {
		return err
	}

	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("invalid checksum file path %q: %w", args[0], err)
		}
		defer f.Close()
		r = f
	}

	entries, malformed, err := checksum.ParseList(r, o.strict)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("%s: no properly formatted checksum lines found", args[0])
	}

	if o.ignoreMissing {
		kept := entries[:0]
		for _, e := range entries {
			if _, err := os.Stat(e.Path); errors.Is(err, fs.ErrNotExist) {
				ro.log.Debugf("skipping missing %s", e.Path)
				continue
			}
			kept = append(kept, e)
		}
		entries = kept
		if len(entries) == 0 {
			return fmt.Errorf("%s: no file was verified", args[0])
		}
	}

	start := time.Now()
	results, summary, err := checksum.Verify(cmd.Context(), entries, checksum.Options{
		Provider:      ro.provider,
		Workers:       ro.workers,
		BufferSize:    ro.bufferSize,
		Display:       ro.display,
		LoggerFactory: ro.loggers,
	})
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}
	summary.Malformed = malformed

	for _, res := range results {
		ro.display.ShowCheckLine(res.Path, string(res.Status))
	}
	ro.display.ShowChecksumSummary(summary, time.Since(start))

	if len(summary.Failed) > 0 || len(summary.Missing) > 0 {
		return fmt.Errorf("checksum verification failed")
	}
	return nil
}
