package cmd

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	abcDigest   = "a9993e364706816aba3e25717850c26c9cd0d89d"
	emptyDigest = "da39a3ee5e6b4b0d3255bfef95601890afd80709"
)

func init() {
	color.NoColor = true
}

// execute runs a fresh command tree with isolated output and no config file
// from the user's home directory.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSum(t *testing.T) {
	dir := t.TempDir()
	abc := writeFile(t, filepath.Join(dir, "abc.txt"), "abc")
	empty := writeFile(t, filepath.Join(dir, "empty.txt"), "")

	tests := []struct {
		name    string
		stdin   string
		args    []string
		want    string
		wantErr bool
	}{
		{
			name: "string",
			args: []string{"sum", "-s", "abc"},
			want: abcDigest + "  \"abc\"\n",
		},
		{
			name: "empty string",
			args: []string{"sum", "--string", ""},
			want: emptyDigest + "  \"\"\n",
		},
		{
			name:  "stdin implicit",
			stdin: "abc",
			args:  []string{"sum", "--quiet"},
			want:  abcDigest + "  -\n",
		},
		{
			name:  "files and stdin keep argument order",
			stdin: "abc",
			args:  []string{"sum", "-q", empty, "-", abc},
			want:  emptyDigest + "  " + empty + "\n" + abcDigest + "  -\n" + abcDigest + "  " + abc + "\n",
		},
		{
			name: "portable provider",
			args: []string{"sum", "-q", "--provider", "portable", abc},
			want: abcDigest + "  " + abc + "\n",
		},
		{
			name: "native provider",
			args: []string{"sum", "-q", "--provider", "native", abc},
			want: abcDigest + "  " + abc + "\n",
		},
		{
			name:    "missing file",
			args:    []string{"sum", "-q", abc, filepath.Join(dir, "gone")},
			want:    abcDigest + "  " + abc + "\n",
			wantErr: true,
		},
		{
			name:    "unknown provider",
			args:    []string{"sum", "--provider", "quantum", abc},
			wantErr: true,
		},
		{
			name:    "string with files",
			args:    []string{"sum", "-s", "abc", abc},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.stdin, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, filepath.Join(dir, "good.txt"), "abc")
	changed := writeFile(t, filepath.Join(dir, "changed.txt"), "abd")
	gone := filepath.Join(dir, "gone.txt")

	t.Run("all ok", func(t *testing.T) {
		list := writeFile(t, filepath.Join(dir, "ok.sha1"), abcDigest+"  "+good+"\n")
		out, _, err := execute(t, "", "check", list)
		require.NoError(t, err)
		assert.Equal(t, good+": OK\n", out)
	})

	t.Run("mismatch and missing", func(t *testing.T) {
		list := writeFile(t, filepath.Join(dir, "bad.sha1"), strings.Join([]string{
			abcDigest + "  " + good,
			abcDigest + "  " + changed,
			abcDigest + "  " + gone,
		}, "\n"))
		out, _, err := execute(t, "", "check", list)
		require.Error(t, err)
		assert.Contains(t, out, good+": OK\n")
		assert.Contains(t, out, changed+": FAILED\n")
		assert.Contains(t, out, gone+": FAILED open or read\n")
	})

	t.Run("quiet hides OK lines", func(t *testing.T) {
		list := writeFile(t, filepath.Join(dir, "quiet.sha1"), abcDigest+"  "+good+"\n"+abcDigest+"  "+changed+"\n")
		out, _, err := execute(t, "", "check", "--quiet", list)
		require.Error(t, err)
		assert.Equal(t, changed+": FAILED\n", out)
	})

	t.Run("ignore missing", func(t *testing.T) {
		list := writeFile(t, filepath.Join(dir, "missing.sha1"), abcDigest+"  "+good+"\n"+abcDigest+"  "+gone+"\n")
		out, _, err := execute(t, "", "check", "--ignore-missing", list)
		require.NoError(t, err)
		assert.Equal(t, good+": OK\n", out)
	})

	t.Run("ignore missing with nothing left", func(t *testing.T) {
		list := writeFile(t, filepath.Join(dir, "allgone.sha1"), abcDigest+"  "+gone+"\n")
		out, _, err := execute(t, "", "check", "--ignore-missing", list)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no file was verified")
		assert.Empty(t, out)
	})

	t.Run("list from stdin in BSD format", func(t *testing.T) {
		out, _, err := execute(t, "SHA1 ("+good+") = "+strings.ToUpper(abcDigest)+"\n", "check", "-")
		require.NoError(t, err)
		assert.Equal(t, good+": OK\n", out)
	})

	t.Run("strict rejects malformed lines", func(t *testing.T) {
		list := writeFile(t, filepath.Join(dir, "strict.sha1"), abcDigest+"  "+good+"\nnonsense\n")
		_, _, err := execute(t, "", "check", list)
		require.NoError(t, err)

		_, _, err = execute(t, "", "check", "--strict", list)
		assert.Error(t, err)
	})

	t.Run("no valid lines", func(t *testing.T) {
		list := writeFile(t, filepath.Join(dir, "empty.sha1"), "# nothing\n")
		_, _, err := execute(t, "", "check", list)
		assert.Error(t, err)
	})
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "content")
	writeFile(t, filepath.Join(root, "a.bin"), strings.Repeat("sha1brr", 10000))
	writeFile(t, filepath.Join(root, "sub", "b.bin"), strings.Repeat("x", 1234))

	info := metainfo.Info{PieceLength: 1 << 14}
	require.NoError(t, info.BuildFromFilePath(root))
	infoBytes, err := bencode.Marshal(info)
	require.NoError(t, err)

	torrentPath := filepath.Join(dir, "content.torrent")
	f, err := os.Create(torrentPath)
	require.NoError(t, err)
	require.NoError(t, (&metainfo.MetaInfo{InfoBytes: infoBytes}).Write(f))
	require.NoError(t, f.Close())

	out, _, err := execute(t, "", "verify", "--quiet", torrentPath, root)
	require.NoError(t, err)
	assert.Equal(t, "100.00%\n", out)

	writeFile(t, filepath.Join(root, "sub", "b.bin"), strings.Repeat("y", 1234))
	out, _, err = execute(t, "", "verify", "--quiet", "--provider", "portable", torrentPath, root)
	assert.Error(t, err)
	assert.NotEqual(t, "100.00%\n", out)

	_, _, err = execute(t, "", "verify", filepath.Join(dir, "missing.torrent"), root)
	assert.Error(t, err)
}

func TestConfigProfile(t *testing.T) {
	dir := t.TempDir()
	abc := writeFile(t, filepath.Join(dir, "abc.txt"), "abc")
	cfg := writeFile(t, filepath.Join(dir, "sha1brr.yaml"), `version: 1
default:
  provider: native
  quiet: true
profiles:
  portable:
    provider: portable
    workers: 2
`)

	out, _, err := execute(t, "", "sum", "--config", cfg, "--profile", "portable", abc)
	require.NoError(t, err)
	assert.Equal(t, abcDigest+"  "+abc+"\n", out)

	_, _, err = execute(t, "", "sum", "--config", cfg, "--profile", "nope", abc)
	assert.Error(t, err)

	_, _, err = execute(t, "", "sum", "--config", filepath.Join(dir, "absent.yaml"), abc)
	assert.Error(t, err)

	_, _, err = execute(t, "", "sum", "--profile", "portable", abc)
	assert.Error(t, err, "profile without a config file")
}

func TestVersion(t *testing.T) {
	SetVersion("v1.2.3", "2025-01-01")
	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "sha1brr version: v1.2.3")
	assert.Contains(t, out, "Build Time:      2025-01-01")
	assert.Contains(t, out, "SHA-1 provider:")
}

func TestUpdateRejectsDevBuild(t *testing.T) {
	SetVersion("dev", "unknown")
	_, _, err := execute(t, "", "update")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "development build")
}

func TestProviderEnv(t *testing.T) {
	dir := t.TempDir()
	abc := writeFile(t, filepath.Join(dir, "abc.txt"), "abc")

	t.Setenv("SHA1BRR_PROVIDER", "quantum")
	_, _, err := execute(t, "", "sum", "-q", abc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHA1BRR_PROVIDER")

	// an explicit flag takes precedence over the environment
	out, _, err := execute(t, "", "sum", "-q", "--provider", "portable", abc)
	require.NoError(t, err)
	assert.Equal(t, abcDigest+"  "+abc+"\n", out)

	t.Setenv("SHA1BRR_PROVIDER", "portable")
	out, _, err = execute(t, "", "sum", "-q", abc)
	require.NoError(t, err)
	assert.Equal(t, abcDigest+"  "+abc+"\n", out)
}

func TestPieces(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a.bin"), strings.Repeat("sha1brr", 5000))
	b := writeFile(t, filepath.Join(dir, "b.bin"), strings.Repeat("z", 20000))

	// the same two files as a torrent, for reference piece hashes
	info := metainfo.Info{PieceLength: 16 << 10}
	require.NoError(t, info.BuildFromFilePath(dir))
	var want strings.Builder
	for i := 0; i*20 < len(info.Pieces); i++ {
		fmt.Fprintf(&want, "%d  %s\n", i, hex.EncodeToString(info.Pieces[i*20:(i+1)*20]))
	}

	for _, provider := range []string{"portable", "native"} {
		out, _, err := execute(t, "", "pieces", "-q", "--provider", provider, "--piece-length", "16KiB", a, b)
		require.NoError(t, err)
		assert.Equal(t, want.String(), out, provider)
	}

	_, _, err := execute(t, "", "pieces", "--piece-length", "lots", a)
	assert.Error(t, err)
	_, _, err = execute(t, "", "pieces", filepath.Join(dir, "gone"))
	assert.Error(t, err)
}
