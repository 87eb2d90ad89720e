package checksum

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/autobrr/sha1brr/internal/types"
)

// ErrMalformedLine is wrapped by ParseList errors for lines that are neither
// GNU nor BSD style checksum lines.
var ErrMalformedLine = errors.New("malformed checksum line")

const digestLen = 40

// Entry is one line of a checksum list.
type Entry struct {
	Digest string
	Path   string
	Binary bool
	Line   int
}

// FormatLine renders a GNU sha1sum line.
func FormatLine(digest, path string) string {
	return digest + "  " + path
}

// ValidDigest reports whether s is 40 hex characters.
func ValidDigest(s string) bool {
	if len(s) != digestLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

// ParseList reads GNU ("<digest>  <path>", "<digest> *<path>") and BSD
// ("SHA1 (<path>) = <digest>") lines. Blank lines and lines starting with #
// are skipped. In non-strict mode malformed lines are counted instead of
// failing the parse.
func ParseList(r io.Reader, strict bool) ([]Entry, int, error) {
	var entries []Entry
	malformed := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), 1<<20)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		e, ok := parseLine(line)
		if !ok {
			if strict {
				return nil, malformed, fmt.Errorf("line %d: %w", n, ErrMalformedLine)
			}
			malformed++
			continue
		}
		e.Line = n
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, malformed, fmt.Errorf("could not read checksum list: %w", err)
	}
	return entries, malformed, nil
}

func parseLine(line string) (Entry, bool) {
	if rest, ok := strings.CutPrefix(line, "SHA1 ("); ok {
		idx := strings.LastIndex(rest, ") = ")
		if idx < 0 {
			return Entry{}, false
		}
		path, digest := rest[:idx], rest[idx+4:]
		if path == "" || !ValidDigest(digest) {
			return Entry{}, false
		}
		return Entry{Digest: strings.ToLower(digest), Path: path}, true
	}

	if len(line) < digestLen+2 || !ValidDigest(line[:digestLen]) || line[digestLen] != ' ' {
		return Entry{}, false
	}
	e := Entry{Digest: strings.ToLower(line[:digestLen])}
	switch line[digestLen+1] {
	case ' ':
	case '*':
		e.Binary = true
	default:
		return Entry{}, false
	}
	e.Path = line[digestLen+2:]
	if e.Path == "" {
		return Entry{}, false
	}
	return e, true
}

// Status of one checked entry.
type Status string

const (
	StatusOK      Status = "OK"
	StatusFailed  Status = "FAILED"
	StatusMissing Status = "FAILED open or read"
)

// CheckResult is the outcome of checking one entry.
type CheckResult struct {
	Entry
	Actual string
	Status Status
	Err    error
}

// Verify recomputes the digest of every entry and compares it with the
// listed one.
func Verify(ctx context.Context, entries []Entry, opts Options) ([]CheckResult, *types.ChecksumSummary, error) {
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}

	digests, err := HashFiles(ctx, paths, opts)
	if err != nil {
		return nil, nil, err
	}

	summary := &types.ChecksumSummary{Total: len(entries)}
	results := make([]CheckResult, len(entries))
	for i, e := range entries {
		d := digests[i]
		res := CheckResult{Entry: e, Actual: d.Digest, Err: d.Err}
		switch {
		case d.Err != nil:
			res.Status = StatusMissing
			summary.Missing = append(summary.Missing, e.Path)
			if !errors.Is(d.Err, fs.ErrNotExist) {
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", e.Path, d.Err))
			}
		case d.Digest == e.Digest:
			res.Status = StatusOK
			summary.OK++
		default:
			res.Status = StatusFailed
			summary.Failed = append(summary.Failed, e.Path)
		}
		results[i] = res
	}
	return results, summary, nil
}
