package torrent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"
	"github.com/autobrr/sha1brr/internal/sha1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPieceLen = 1 << 14

// createContent writes deterministic files under dir/name and returns the
// content root.
func createContent(t *testing.T, dir string, sizes map[string]int) string {
	t.Helper()
	root := filepath.Join(dir, "content")
	i := 0
	for rel, size := range sizes {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		data := make([]byte, size)
		for j := range data {
			data[j] = byte((j*31 + i) % 251)
		}
		require.NoError(t, os.WriteFile(path, data, 0644))
		i++
	}
	return root
}

// createTorrent builds a .torrent for root with the reference hasher of the
// metainfo package. A file root gives a single-file torrent.
func createTorrent(t *testing.T, root string) string {
	t.Helper()
	info := metainfo.Info{PieceLength: testPieceLen}
	require.NoError(t, info.BuildFromFilePath(root))

	infoBytes, err := bencode.Marshal(info)
	require.NoError(t, err)
	mi := metainfo.MetaInfo{InfoBytes: infoBytes}

	path := filepath.Join(filepath.Dir(root), "test.torrent")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, mi.Write(f))
	return path
}

func TestVerifyData(t *testing.T) {
	for _, p := range []sha1.Provider{sha1.ProviderPortable, sha1.ProviderNative} {
		t.Run(p.String(), func(t *testing.T) {
			root := createContent(t, t.TempDir(), map[string]int{
				"a.bin":       testPieceLen*3 + 17,
				"sub/b.bin":   testPieceLen / 2,
				"sub/c/d.bin": testPieceLen*2 - 5,
			})
			torrentPath := createTorrent(t, root)

			res, err := VerifyData(context.Background(), VerifyOptions{
				TorrentPath: torrentPath,
				ContentPath: root,
				Provider:    p,
				Workers:     3,
			})
			require.NoError(t, err)
			assert.Equal(t, res.TotalPieces, res.GoodPieces)
			assert.Zero(t, res.BadPieces)
			assert.Zero(t, res.MissingPieces)
			assert.Equal(t, 100.0, res.Completion)
			assert.Empty(t, res.MissingFiles)
		})
	}
}

func TestVerifyData_Corrupted(t *testing.T) {
	root := createContent(t, t.TempDir(), map[string]int{
		"a.bin": testPieceLen * 4,
	})
	path := filepath.Join(root, "a.bin")
	torrentPath := createTorrent(t, path)

	// flip a byte in the third piece
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[testPieceLen*2+5] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0644))

	// single-file torrent, content given as the file itself
	res, err := VerifyData(context.Background(), VerifyOptions{
		TorrentPath: torrentPath,
		ContentPath: path,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalPieces)
	assert.Equal(t, 3, res.GoodPieces)
	assert.Equal(t, []int{2}, res.BadPieceIndices)
	assert.Equal(t, 75.0, res.Completion)

	// and as the directory holding it
	res, err = VerifyData(context.Background(), VerifyOptions{
		TorrentPath: torrentPath,
		ContentPath: root,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.BadPieces)
}

func TestVerifyData_MissingFile(t *testing.T) {
	root := createContent(t, t.TempDir(), map[string]int{
		"a.bin": testPieceLen * 2,
		"b.bin": testPieceLen * 2,
	})
	torrentPath := createTorrent(t, root)
	require.NoError(t, os.Remove(filepath.Join(root, "b.bin")))

	res, err := VerifyData(context.Background(), VerifyOptions{
		TorrentPath: torrentPath,
		ContentPath: root,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalPieces)
	assert.Equal(t, 2, res.GoodPieces)
	assert.Equal(t, 2, res.MissingPieces)
	assert.Equal(t, []string{"b.bin"}, res.MissingFiles)
}

func TestVerifyData_BadTorrent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.torrent")
	require.NoError(t, os.WriteFile(path, []byte("not bencode"), 0644))

	_, err := VerifyData(context.Background(), VerifyOptions{TorrentPath: path, ContentPath: dir})
	assert.Error(t, err)
}

func TestPieceHashes(t *testing.T) {
	root := createContent(t, t.TempDir(), map[string]int{
		"a.bin":     testPieceLen + 100,
		"b/c.bin":   testPieceLen*2 - 100,
		"b/d/e.bin": 7,
	})

	info := metainfo.Info{PieceLength: testPieceLen}
	require.NoError(t, info.BuildFromFilePath(root))

	var paths []string
	for _, f := range info.UpvertedFiles() {
		paths = append(paths, filepath.Join(append([]string{root}, f.Path...)...))
	}

	for _, p := range []sha1.Provider{sha1.ProviderPortable, sha1.ProviderNative} {
		got, err := PieceHashes(context.Background(), paths, testPieceLen, p)
		require.NoError(t, err)
		assert.Equal(t, info.Pieces, got, "provider %s", p)
	}

	_, err := PieceHashes(context.Background(), paths, 0, sha1.ProviderPortable)
	assert.Error(t, err)
}

func TestPieceHashes_ExactMultiple(t *testing.T) {
	root := createContent(t, t.TempDir(), map[string]int{"a.bin": testPieceLen * 2})
	path := filepath.Join(root, "a.bin")

	info := metainfo.Info{PieceLength: testPieceLen}
	require.NoError(t, info.BuildFromFilePath(path))

	got, err := PieceHashes(context.Background(), []string{path}, testPieceLen, sha1.ProviderPortable)
	require.NoError(t, err)
	assert.Len(t, got, 2*sha1.Size)
	assert.Equal(t, info.Pieces, got)

	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	got, err = PieceHashes(context.Background(), []string{empty}, testPieceLen, sha1.ProviderPortable)
	require.NoError(t, err)
	assert.Empty(t, got)
}
