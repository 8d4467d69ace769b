// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterlib

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noMounts(string) ([]string, error) {
	return nil, nil
}

func TestNewWorkspaceLayout(t *testing.T) {
	scratchDir := t.TempDir()

	ws, err := newWorkspace(scratchDir)
	require.NoError(t, err)

	assert.Equal(t, scratchDir, filepath.Dir(ws.Dir()))
	assert.True(t, strings.HasPrefix(filepath.Base(ws.Dir()), "ovaconverter-"))
	assert.DirExists(t, ws.sourceDir())
	assert.DirExists(t, ws.stagingDir())
	assert.NoDirExists(t, ws.mountDir())

	info, err := os.Stat(ws.Dir())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())

	require.NoError(t, ws.remove(noMounts))
	assert.NoDirExists(t, ws.Dir())
}

func TestNewWorkspaceIsUnique(t *testing.T) {
	scratchDir := t.TempDir()

	first, err := newWorkspace(scratchDir)
	require.NoError(t, err)
	second, err := newWorkspace(scratchDir)
	require.NoError(t, err)

	assert.NotEqual(t, first.Dir(), second.Dir())
}

func TestWorkspaceRemoveRefusesWithMounts(t *testing.T) {
	ws, err := newWorkspace(t.TempDir())
	require.NoError(t, err)

	mountsUnder := func(dir string) ([]string, error) {
		return []string{filepath.Join(dir, "mnt", "proc")}, nil
	}

	err = ws.remove(mountsUnder)
	assert.ErrorContains(t, err, "active mounts")
	assert.DirExists(t, ws.Dir())
}
