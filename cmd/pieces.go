package cmd

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/autobrr/sha1brr/internal/sha1"
	"github.com/autobrr/sha1brr/internal/torrent"
	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type piecesOptions struct {
	commonOptions
	pieceLength string
}

func newPiecesCmd() *cobra.Command {
	o := &piecesOptions{}
	cmd := &cobra.Command{
		Use:   "pieces <file...>",
		Short: "Print torrent style piece hashes of files",
		Long: `Hashes the files, concatenated in argument order, in fixed size pieces and
prints one SHA-1 digest per piece. The output matches the piece hashes of a
torrent created from the same files with the same piece length.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPieces(cmd, args, o)
		},
		DisableFlagsInUseLine:      true,
		SuggestionsMinimumDistance: 1,
		SilenceUsage:               true,
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringVarP(&o.pieceLength, "piece-length", "l", "256KiB", "piece length, e.g. 16KiB or 4MiB")
	addCommonFlags(cmd, &o.commonOptions)
	cmd.SetUsageTemplate(`Usage:
  {{.CommandPath}} <file...> [flags]

Arguments:
  file   Path to a file; multiple files are hashed as one stream

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}
`)
	return cmd
}

func runPieces(cmd *cobra.Command, args []string, o *piecesOptions) error {
	ro, err := o.resolve(cmd)
	if err != nil {
		return err
	}

	pieceLen, err := humanize.ParseBytes(o.pieceLength)
	if err != nil {
		return fmt.Errorf("invalid piece length %q: %w", o.pieceLength, err)
	}
	if pieceLen == 0 || pieceLen > 1<<30 {
		return fmt.Errorf("piece length must be between 1 byte and 1GiB, got %s", humanize.IBytes(pieceLen))
	}
	ro.log.Debugf("hashing %d file(s) in %s pieces", len(args), humanize.IBytes(pieceLen))

	start := time.Now()
	pieces, err := torrent.PieceHashes(cmd.Context(), args, int64(pieceLen), ro.provider)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i := 0; i < len(pieces); i += sha1.Size {
		fmt.Fprintf(out, "%d  %s\n", i/sha1.Size, hex.EncodeToString(pieces[i:i+sha1.Size]))
	}
	ro.display.ShowMessage(fmt.Sprintf("%d piece(s) in %s", len(pieces)/sha1.Size, time.Since(start).Round(time.Millisecond)))
	return nil
}
