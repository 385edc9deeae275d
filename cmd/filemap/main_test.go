package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Giulio2002/filemap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"lukechampine.com/blake3"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func run(t *testing.T, name string, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	err := commands[name](zaptest.NewLogger(t), &stdout, args)
	return stdout.String(), err
}

func TestInfo(t *testing.T) {
	data := []byte("blake3 me")
	path := writeTemp(t, "info.dat", data)

	out, err := run(t, "info", path)
	require.NoError(t, err)

	sum := blake3.Sum256(data)
	assert.Equal(t, fmt.Sprintf("%s\t%d\t%x\n", path, len(data), sum[:]), out)
}

func TestCat(t *testing.T) {
	path := writeTemp(t, "cat.dat", []byte("meow"))

	out, err := run(t, "cat", path)
	require.NoError(t, err)
	assert.Equal(t, "meow", out)
}

func TestDump(t *testing.T) {
	data := []byte("0123456789abcdefXYZ")
	path := writeTemp(t, "dump.dat", data)

	out, err := run(t, "dump", "-n", "16", path)
	require.NoError(t, err)
	assert.Equal(t, hex.Dump(data[:16]), out)

	out, err = run(t, "dump", "-n", "-1", path)
	require.NoError(t, err)
	assert.Equal(t, hex.Dump(data), out)
}

func TestResizeAndPoke(t *testing.T) {
	path := writeTemp(t, "resize.dat", nil)

	_, err := run(t, "resize", path, "4096")
	require.NoError(t, err)

	_, err = run(t, "poke", path, "4095", "0xCD")
	require.NoError(t, err)
	_, err = run(t, "poke", path, "0", "171")
	require.NoError(t, err)

	f, err := filemap.OpenReadOnly(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, 4096, f.Size())
	assert.Equal(t, byte(0xAB), f.At(0))
	assert.Equal(t, byte(0xCD), f.At(4095))

	_, err = run(t, "poke", path, "4096", "1")
	assert.ErrorIs(t, err, filemap.ErrOutOfRange)

	_, err = run(t, "resize", path, "-1")
	assert.ErrorIs(t, err, filemap.ErrResize)
}

func TestUsageErrors(t *testing.T) {
	for name := range commands {
		_, err := run(t, name)
		assert.ErrorIs(t, err, errUsage, name)
	}
}

func TestCompressRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("memory mapped files compress well. ", 20000))
	in := writeTemp(t, "plain.dat", data)

	for _, c := range []string{"zstd", "lz4"} {
		t.Run(c, func(t *testing.T) {
			dir := t.TempDir()
			packed := filepath.Join(dir, "packed")
			unpacked := filepath.Join(dir, "unpacked")

			_, err := run(t, "compress", "-codec", c, in, packed)
			require.NoError(t, err)

			fi, err := os.Stat(packed)
			require.NoError(t, err)
			assert.Less(t, fi.Size(), int64(len(data)))

			_, err = run(t, "decompress", packed, unpacked)
			require.NoError(t, err)

			got, err := os.ReadFile(unpacked)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(data, got))
		})
	}
}

func TestCompressUnknownCodec(t *testing.T) {
	in := writeTemp(t, "in.dat", []byte("x"))
	_, err := run(t, "compress", "-codec", "brotli", in, filepath.Join(t.TempDir(), "out"))
	assert.Error(t, err)
}

func TestDecompressBadHeader(t *testing.T) {
	in := writeTemp(t, "bad.dat", []byte{0xFF, 1, 2, 3})
	_, err := run(t, "decompress", in, filepath.Join(t.TempDir(), "out"))
	assert.ErrorIs(t, err, errUnknownCodec)
}

func TestMappedWriter(t *testing.T) {
	path := writeTemp(t, "w.dat", nil)

	f, err := filemap.OpenReadWrite(path)
	require.NoError(t, err)
	defer f.Close()

	w := &mappedWriter{f: f}
	for i := 0; i < 1000; i++ {
		_, err := w.Write([]byte("0123456789"))
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, f.Size(), 10000)
	require.NoError(t, w.Close())
	assert.Equal(t, 10000, f.Size())
	assert.Equal(t, strings.Repeat("0123456789", 1000), f.Text())
}
