package display

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/autobrr/sha1brr/internal/types"
	humanize "github.com/dustin/go-humanize"
	"github.com/fatih/color"
	progressbar "github.com/schollz/progressbar/v3"
)

type Display struct {
	formatter *Formatter
	bar       *progressbar.ProgressBar
	quiet     bool

	// digests and check lines go to out, everything decorative to errOut
	out    io.Writer
	errOut io.Writer
}

// Ensure Display implements all required interfaces
var _ Displayer = (*Display)(nil)
var _ ResultDisplayer = (*Display)(nil)

func NewDisplay(formatter *Formatter) *Display {
	return &Display{
		formatter: formatter,
		out:       os.Stdout,
		errOut:    color.Error,
	}
}

// SetOutput redirects result and status output.
func (d *Display) SetOutput(out, errOut io.Writer) {
	d.out = out
	d.errOut = errOut
}

func (d *Display) ShowProgress(total int) {
	if d.quiet {
		return
	}
	d.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(d.errOut),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetDescription("[cyan][bold]Hashing...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (d *Display) UpdateProgress(completed int, hashrate float64) {
	if d.quiet || d.bar == nil {
		return
	}
	if err := d.bar.Set(completed); err != nil {
		log.Printf("failed to update progress bar: %v", err)
	}

	if hashrate > 0 {
		description := fmt.Sprintf("[cyan][bold]Hashing...[reset] [%s/s]", humanize.IBytes(uint64(hashrate)))
		d.bar.Describe(description)
	}
}

func (d *Display) ShowFiles(files []types.EntryFile) {
	if d.quiet || !d.formatter.verbose {
		return
	}

	fmt.Fprintf(d.errOut, "\n%s\n", magenta("Files being hashed:"))
	for i, file := range files {
		prefix := "  ├─"
		if i == len(files)-1 {
			prefix = "  └─"
		}
		fmt.Fprintf(d.errOut, "%s %s (%s)\n",
			prefix,
			success(filepath.Base(file.Path)),
			label(humanize.IBytes(uint64(file.Length))))
	}
	fmt.Fprintln(d.errOut)
}

func (d *Display) FinishProgress() {
	if d.bar == nil {
		return
	}
	if err := d.bar.Finish(); err != nil {
		log.Printf("failed to finish progress bar: %v", err)
	}
	fmt.Fprintln(d.errOut)
	d.bar = nil
}

func (d *Display) IsQuiet() bool {
	return d.quiet
}

func (d *Display) SetQuiet(quiet bool) {
	d.quiet = quiet
}

var (
	magenta    = color.New(color.FgMagenta).SprintFunc()
	yellow     = color.New(color.FgYellow).SprintFunc()
	success    = color.New(color.FgGreen).SprintFunc()
	label      = color.New(color.FgCyan).SprintFunc()
	errorColor = color.New(color.FgRed).SprintFunc()
)

func (d *Display) ShowMessage(msg string) {
	if d.quiet {
		return
	}
	fmt.Fprintf(d.errOut, "%s %s\n", success("Info:"), msg)
}

func (d *Display) ShowError(msg string) {
	fmt.Fprintln(d.errOut, errorColor(msg))
}

func (d *Display) ShowWarning(msg string) {
	fmt.Fprintf(d.errOut, "%s %s\n", yellow("Warning:"), msg)
}

// ShowDigest prints a sha1sum compatible line, or the error for that file.
func (d *Display) ShowDigest(fd types.FileDigest) {
	if fd.Err != nil {
		d.ShowError(fmt.Sprintf("%s: %v", fd.Path, fd.Err))
		return
	}
	fmt.Fprintf(d.out, "%s  %s\n", fd.Digest, fd.Path)
}

// ShowCheckLine prints the per-entry outcome of a checksum list check.
func (d *Display) ShowCheckLine(path string, status string) {
	if d.quiet && status == "OK" {
		return
	}
	switch status {
	case "OK":
		fmt.Fprintf(d.out, "%s: %s\n", path, success(status))
	default:
		fmt.Fprintf(d.out, "%s: %s\n", path, errorColor(status))
	}
}

func (d *Display) ShowChecksumSummary(s *types.ChecksumSummary, duration time.Duration) {
	if s.Malformed > 0 {
		d.ShowWarning(fmt.Sprintf("%d line(s) are improperly formatted", s.Malformed))
	}
	if len(s.Missing) > 0 {
		d.ShowWarning(fmt.Sprintf("%d listed file(s) could not be read", len(s.Missing)))
	}
	if len(s.Failed) > 0 {
		d.ShowWarning(fmt.Sprintf("%d computed checksum(s) did NOT match", len(s.Failed)))
	}
	if d.quiet {
		return
	}

	fmt.Fprintf(d.errOut, "\n%s\n", magenta("Check results:"))
	fmt.Fprintf(d.errOut, "  %-11s %d\n", label("Total:"), s.Total)
	fmt.Fprintf(d.errOut, "  %-11s %s\n", label("OK:"), success(s.OK))
	fmt.Fprintf(d.errOut, "  %-11s %s\n", label("Failed:"), errorColor(len(s.Failed)))
	fmt.Fprintf(d.errOut, "  %-11s %s\n", label("Missing:"), errorColor(len(s.Missing)))
	fmt.Fprintf(d.errOut, "  %-11s %s\n", label("Time:"), d.formatter.FormatDuration(duration))
}

func (d *Display) ShowVerificationResult(result *types.VerificationResult, duration time.Duration) {
	if d.quiet {
		fmt.Fprintf(d.out, "%.2f%%\n", result.Completion)
		return
	}

	fmt.Fprintf(d.out, "\n%s\n", magenta("Verification results:"))
	fmt.Fprintf(d.out, "  %-15s %d\n", label("Total pieces:"), result.TotalPieces)
	fmt.Fprintf(d.out, "  %-15s %s\n", label("Good pieces:"), success(result.GoodPieces))
	fmt.Fprintf(d.out, "  %-15s %s\n", label("Bad pieces:"), errorColor(result.BadPieces))
	fmt.Fprintf(d.out, "  %-15s %d\n", label("Missing pieces:"), result.MissingPieces)
	fmt.Fprintf(d.out, "  %-15s %.2f%%\n", label("Completion:"), result.Completion)
	fmt.Fprintf(d.out, "  %-15s %s\n", label("Time:"), d.formatter.FormatDuration(duration))

	if len(result.MissingFiles) > 0 {
		fmt.Fprintf(d.out, "\n%s\n", yellow("Missing files:"))
		for _, f := range result.MissingFiles {
			fmt.Fprintf(d.out, "  %s\n", f)
		}
	}

	if d.formatter.verbose && len(result.BadPieceIndices) > 0 {
		fmt.Fprintf(d.out, "\n%s %v\n", label("Bad piece indices:"), result.BadPieceIndices)
	}
}

type Formatter struct {
	verbose bool
}

func NewFormatter(verbose bool) *Formatter {
	return &Formatter{verbose: verbose}
}

func (f *Formatter) FormatBytes(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}

func (f *Formatter) FormatDuration(dur time.Duration) string {
	if dur < time.Second {
		return fmt.Sprintf("%dms", dur.Milliseconds())
	}
	return humanize.RelTime(time.Now().Add(-dur), time.Now(), "", "")
}

// NewDisplayer returns a Displayer interface implementation
func NewDisplayer(verbose bool) Displayer {
	return NewDisplay(NewFormatter(verbose))
}
