package torrent

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/autobrr/sha1brr/internal/sha1"
)

// PieceHashes hashes the concatenation of paths in pieces of pieceLen bytes
// and returns the digests back to back, the layout of the info dictionary's
// pieces field.
func PieceHashes(ctx context.Context, paths []string, pieceLen int64, p sha1.Provider) ([]byte, error) {
	if pieceLen <= 0 {
		return nil, fmt.Errorf("invalid piece length %d", pieceLen)
	}

	var pieces []byte
	var hasher sha1.Hasher
	var inPiece int64

	flush := func() error {
		sum, err := hasher.Sum()
		if err != nil {
			return err
		}
		pieces = append(pieces, sum[:]...)
		hasher = nil
		inPiece = 0
		return nil
	}

	buf := make([]byte, min(pieceLen, 1<<20))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("could not open %q: %w", path, err)
		}

		for {
			if err := ctx.Err(); err != nil {
				f.Close()
				return nil, err
			}
			n, err := f.Read(buf[:min(int64(len(buf)), pieceLen-inPiece)])
			if n > 0 {
				// started lazily so a trailing empty piece is never opened
				if hasher == nil {
					hasher = sha1.NewWithProvider(p)
				}
				if _, err := hasher.Write(buf[:n]); err != nil {
					f.Close()
					return nil, err
				}
				inPiece += int64(n)
				if inPiece == pieceLen {
					if err := flush(); err != nil {
						f.Close()
						return nil, err
					}
				}
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("could not read %q: %w", path, err)
			}
		}
		f.Close()
	}

	if hasher != nil {
		if err := flush(); err != nil {
			return nil, err
		}
	}
	return pieces, nil
}
