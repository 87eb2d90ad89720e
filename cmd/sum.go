package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/autobrr/sha1brr/internal/checksum"
	"github.com/autobrr/sha1brr/internal/sha1"
	"github.com/autobrr/sha1brr/internal/types"
	"github.com/spf13/cobra"
)

type sumOptions struct {
	commonOptions
	text     string
	hasText  bool
	showTime bool
}

func newSumCmd() *cobra.Command {
	o := &sumOptions{}
	cmd := &cobra.Command{
		Use:   "sum [file...]",
		Short: "Print SHA-1 digests of files, a string or stdin",
		Long: `Computes the SHA-1 digest of each file and prints it in sha1sum format.
With no file, or when file is -, standard input is read.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.hasText = cmd.Flags().Changed("string")
			return runSum(cmd, args, o)
		},
		DisableFlagsInUseLine:      true,
		SuggestionsMinimumDistance: 1,
		SilenceUsage:               true,
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringVarP(&o.text, "string", "s", "", "hash the given string instead of files")
	cmd.Flags().BoolVar(&o.showTime, "time", false, "print elapsed time when done")
	addCommonFlags(cmd, &o.commonOptions)
	cmd.SetUsageTemplate(`Usage:
  {{.CommandPath}} [file...] [flags]

Arguments:
  file   Path to a file to hash, or - for standard input

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}
`)
	return cmd
}

func runSum(cmd *cobra.Command, args []string, o *sumOptions) error {
	ro, err := o.resolve(cmd)
	if err != nil {
		return err
	}
	start := time.Now()

	if o.hasText {
		if len(args) > 0 {
			return fmt.Errorf("--string cannot be combined with file arguments")
		}
		h := sha1.NewWithProvider(ro.provider)
		if _, err := h.WriteString(o.text); err != nil {
			return err
		}
		digest, err := h.Digest()
		if err != nil {
			return err
		}
		ro.display.ShowDigest(types.FileDigest{Path: strconv.Quote(o.text), Digest: digest})
		return nil
	}

	if len(args) == 0 {
		args = []string{"-"}
	}

	var paths []string
	for _, a := range args {
		if a != "-" {
			paths = append(paths, a)
		}
	}

	digests, err := checksum.HashFiles(cmd.Context(), paths, checksum.Options{
		Provider:      ro.provider,
		Workers:       ro.workers,
		BufferSize:    ro.bufferSize,
		Display:       ro.display,
		LoggerFactory: ro.loggers,
	})
	if err != nil {
		return err
	}

	failed := 0
	stdinDone := false
	next := 0
	for _, a := range args {
		var fd types.FileDigest
		if a == "-" {
			if stdinDone {
				continue
			}
			stdinDone = true
			fd.Path = "-"
			fd.Digest, fd.Err = checksum.HashReader(cmd.InOrStdin(), ro.provider)
		} else {
			fd = digests[next]
			next++
		}
		if fd.Err != nil {
			failed++
		}
		ro.display.ShowDigest(fd)
	}

	if o.showTime {
		ro.display.ShowMessage(fmt.Sprintf("hashed %d input(s) in %s", len(args), time.Since(start).Round(time.Millisecond)))
	}
	if failed > 0 {
		return fmt.Errorf("%d input(s) could not be hashed", failed)
	}
	return nil
}
