// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitStderrLog()
	os.Exit(m.Run())
}

func TestCopyPreservesContentAndMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.qcow2")
	dst := filepath.Join(dir, "sub", "dest.qcow2")
	require.NoError(t, os.WriteFile(src, []byte("qcow2"), 0o600))

	require.NoError(t, Copy(src, dst))

	contents, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "qcow2", string(contents))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCopyRejectsDirectory(t *testing.T) {
	err := Copy(t.TempDir(), filepath.Join(t.TempDir(), "x"))
	assert.ErrorContains(t, err, "is not a file")
}

func TestMoveNoReplaceSameFilesystem(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "demo.ova.gz")
	dst := filepath.Join(dir, "out", "demo.ova.gz")
	require.NoError(t, os.WriteFile(src, []byte("gz"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))

	require.NoError(t, MoveNoReplace(src, dst))

	exists, err := PathExists(src)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.FileExists(t, dst)
}

func TestMoveNoReplaceMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := MoveNoReplace(filepath.Join(dir, "missing"), filepath.Join(dir, "dst"))
	assert.ErrorContains(t, err, "failed to move")
}

func TestMoveNoReplaceKeepsExistingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "demo.ova.gz")
	dst := filepath.Join(dir, "published.ova.gz")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("existing"), 0o644))

	err := MoveNoReplace(src, dst)
	assert.ErrorIs(t, err, ErrDestinationExists)

	contents, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(contents))
	assert.FileExists(t, src)
}

func TestExclusiveCopyKeepsExistingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "demo.ova.gz")
	dst := filepath.Join(dir, "published.ova.gz")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("existing"), 0o644))

	err := copyFile(src, dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY)
	assert.ErrorIs(t, err, ErrDestinationExists)

	contents, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(contents))
}

func TestMoveNoReplaceSourceRemovalFailureIsNotAnError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions do not apply to root")
	}

	srcDir := filepath.Join(t.TempDir(), "workspace")
	require.NoError(t, os.MkdirAll(srcDir, 0o755))
	src := filepath.Join(srcDir, "demo.ova.gz")
	require.NoError(t, os.WriteFile(src, []byte("gz"), 0o644))
	require.NoError(t, os.Chmod(srcDir, 0o555))
	t.Cleanup(func() { os.Chmod(srcDir, 0o755) })

	dst := filepath.Join(t.TempDir(), "demo.ova.gz")
	assert.NoError(t, MoveNoReplace(src, dst))
	assert.FileExists(t, dst)
	assert.FileExists(t, src)
}

func TestDirExists(t *testing.T) {
	dir := t.TempDir()
	exists, err := DirExists(dir)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = DirExists(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRemoveFileIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	assert.NoError(t, RemoveFileIfExists(path))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	assert.NoError(t, RemoveFileIfExists(path))
	assert.NoFileExists(t, path)
}
