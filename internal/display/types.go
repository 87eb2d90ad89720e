package display

import (
	"time"

	"github.com/autobrr/sha1brr/internal/types"
)

// Displayer defines an interface for progress and status output while hashing
type Displayer interface {
	ShowProgress(total int)
	UpdateProgress(completed int, hashrate float64)
	ShowFiles(files []types.EntryFile)
	FinishProgress()
	IsQuiet() bool
	SetQuiet(quiet bool)
	ShowMessage(msg string)
	ShowError(msg string)
	ShowWarning(msg string)
}

// ResultDisplayer defines an interface for printing digests and verification
// outcomes
type ResultDisplayer interface {
	ShowDigest(d types.FileDigest)
	ShowCheckLine(path string, status string)
	ShowChecksumSummary(s *types.ChecksumSummary, duration time.Duration)
	ShowVerificationResult(r *types.VerificationResult, duration time.Duration)
}

// Nop discards everything. It is used when no display is configured.
type Nop struct{}

var _ Displayer = Nop{}

func (Nop) ShowProgress(int)            {}
func (Nop) UpdateProgress(int, float64) {}
func (Nop) ShowFiles([]types.EntryFile) {}
func (Nop) FinishProgress()             {}
func (Nop) IsQuiet() bool               { return true }
func (Nop) SetQuiet(bool)               {}
func (Nop) ShowMessage(string)          {}
func (Nop) ShowError(string)            {}
func (Nop) ShowWarning(string)          {}
