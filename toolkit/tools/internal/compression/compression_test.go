// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package compression

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

var payload = bytes.Repeat([]byte("qcow2 payload line\n"), 4096)

func TestMain(m *testing.M) {
	logger.InitStderrLog()
	os.Exit(m.Run())
}

func TestFormatFromFileName(t *testing.T) {
	cases := map[string]Format{
		"rhcos.qcow2.gz":   FormatGzip,
		"rhel.qcow2.XZ":    FormatXz,
		"centos.qcow2.zst": FormatZstd,
	}
	for name, expected := range cases {
		format, ok := FormatFromFileName(name)
		assert.True(t, ok, name)
		assert.Equal(t, expected, format, name)
	}

	_, ok := FormatFromFileName("rhel.qcow2")
	assert.False(t, ok)
}

func TestBuiltInGzipRoundTrip(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "image.ova")
	compressed := filepath.Join(dir, "image.ova.gz")
	expanded := filepath.Join(dir, "image.out")
	require.NoError(t, os.WriteFile(source, payload, 0o644))

	require.NoError(t, gzipBuiltIn(source, compressed))
	require.NoError(t, VerifyGzip(compressed))
	require.NoError(t, Decompress(FormatGzip, compressed, expanded))

	contents, err := os.ReadFile(expanded)
	require.NoError(t, err)
	assert.Equal(t, payload, contents)
}

func TestGzipFileProducesSingleMember(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "image.ova")
	compressed := filepath.Join(dir, "image.ova.gz")
	require.NoError(t, os.WriteFile(source, payload, 0o644))

	require.NoError(t, GzipFile(shell.NewHostExecutor(), source, compressed))

	// The source is kept.
	assert.FileExists(t, source)

	file, err := os.Open(compressed)
	require.NoError(t, err)
	defer file.Close()

	reader, err := gzip.NewReader(file)
	require.NoError(t, err)
	contents, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, payload, contents)
}

func TestVerifyGzipRejectsConcatenatedMembers(t *testing.T) {
	buffer := &bytes.Buffer{}
	for range 2 {
		writer := gzip.NewWriter(buffer)
		_, err := writer.Write([]byte("member"))
		require.NoError(t, err)
		require.NoError(t, writer.Close())
	}

	path := filepath.Join(t.TempDir(), "double.gz")
	require.NoError(t, os.WriteFile(path, buffer.Bytes(), 0o644))

	err := VerifyGzip(path)
	assert.ErrorIs(t, err, ErrInvalidGzip)
	assert.ErrorContains(t, err, "after the first gzip member")
}

func TestVerifyGzipRejectsTruncatedStream(t *testing.T) {
	buffer := &bytes.Buffer{}
	writer := gzip.NewWriter(buffer)
	_, err := writer.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	path := filepath.Join(t.TempDir(), "truncated.gz")
	require.NoError(t, os.WriteFile(path, buffer.Bytes()[:buffer.Len()/2], 0o644))

	assert.ErrorIs(t, VerifyGzip(path), ErrInvalidGzip)
}

func TestVerifyGzipRejectsPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0o644))

	assert.ErrorIs(t, VerifyGzip(path), ErrInvalidGzip)
}

func TestDecompressXz(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "image.qcow2.xz")

	buffer := &bytes.Buffer{}
	writer, err := xz.NewWriter(buffer)
	require.NoError(t, err)
	_, err = writer.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.NoError(t, os.WriteFile(source, buffer.Bytes(), 0o644))

	destination := filepath.Join(dir, "image.qcow2")
	require.NoError(t, Decompress(FormatXz, source, destination))

	contents, err := os.ReadFile(destination)
	require.NoError(t, err)
	assert.Equal(t, payload, contents)
}

func TestDecompressZstd(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "image.qcow2.zst")

	encoder, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(source, encoder.EncodeAll(payload, nil), 0o644))
	encoder.Close()

	destination := filepath.Join(dir, "image.qcow2")
	require.NoError(t, Decompress(FormatZstd, source, destination))

	contents, err := os.ReadFile(destination)
	require.NoError(t, err)
	assert.Equal(t, payload, contents)
}

func TestDecompressCorruptInput(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "image.qcow2.gz")
	require.NoError(t, os.WriteFile(source, []byte("garbage"), 0o644))

	err := Decompress(FormatGzip, source, filepath.Join(dir, "image.qcow2"))
	assert.Error(t, err)
}

func TestDecompressUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "image.bz2")
	require.NoError(t, os.WriteFile(source, payload, 0o644))

	err := Decompress(Format("bz2"), source, filepath.Join(dir, "image"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
