package sha1

import (
	"crypto/sha1"
	"hash"
	"io"
)

// nativeHasher delegates to the assembly backed crypto/sha1 digest.
type nativeHasher struct {
	h    hash.Hash
	done bool
}

var _ Hasher = (*nativeHasher)(nil)

func newNative() *nativeHasher {
	return &nativeHasher{h: sha1.New()}
}

func (n *nativeHasher) Write(p []byte) (int, error) {
	if n.done {
		return 0, ErrFinalized
	}
	return n.h.Write(p)
}

func (n *nativeHasher) WriteString(s string) (int, error) {
	if n.done {
		return 0, ErrFinalized
	}
	return io.WriteString(n.h, s)
}

func (n *nativeHasher) Sum() ([Size]byte, error) {
	var digest [Size]byte
	if n.done {
		return digest, ErrFinalized
	}
	n.done = true
	copy(digest[:], n.h.Sum(nil))
	return digest, nil
}

func (n *nativeHasher) Digest() (string, error) {
	sum, err := n.Sum()
	if err != nil {
		return "", err
	}
	return encode(sum), nil
}
