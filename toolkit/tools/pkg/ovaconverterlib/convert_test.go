// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterlib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertWithConfigFileInvalidManifest(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("output:\n  sizeGB: ten\n"), 0o644))

	_, err := ConvertWithConfigFile(context.Background(), configFile, ConvertOptions{})
	assert.ErrorIs(t, err, ErrInvalidManifest)
}

func TestConvertWithConfigFileUnknownField(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("input:\n  url: https://example.com/a.qcow2\n"), 0o644))

	_, err := ConvertWithConfigFile(context.Background(), configFile, ConvertOptions{})
	assert.ErrorIs(t, err, ErrInvalidManifest)
}

func TestConvertWithConfigFileMissingFile(t *testing.T) {
	_, err := ConvertWithConfigFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), ConvertOptions{})
	assert.ErrorIs(t, err, ErrInvalidManifest)
}

func TestConvertInvalidJobHasNoSideEffects(t *testing.T) {
	options := rhelOptions(t)
	options.RootPassword = ""

	_, err := Convert(context.Background(), nil, options)
	assert.ErrorIs(t, err, ErrRootPasswordRequired)
	assertScratchDirEmpty(t, options.TempDir)
}

func TestConvertCoreOSWithQemuImg(t *testing.T) {
	testutils.CheckSkipForQemuImg(t)

	sourcePath := filepath.Join(t.TempDir(), "rhcos.qcow2")
	testutils.CreateQcow2Image(t, sourcePath, gib)

	options := coreosOptions(t)
	options.Source = sourcePath
	options.SizeGB = 2

	job, err := NewConversionJob(nil, options)
	require.NoError(t, err)

	// Host checks are skipped: they pin the host to el8 on ppc64le.
	result, err := runJob(context.Background(), job, defaultPipelineDeps())
	require.NoError(t, err)

	assert.Equal(t, successfulCoreOSHistory, result.History)
	assert.Equal(t, 2*gib, result.VolumeSizeBytes)

	fileType, err := testutils.GetImageFileType(result.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, "gzip", fileType)

	outputDir, names := expandArtifact(t, result.ArtifactPath)
	assert.Equal(t, []string{"rhcos", "demo.meta", "demo.ovf"}, names)

	volumeInfo, err := os.Stat(filepath.Join(outputDir, "rhcos"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, volumeInfo.Size(), 2*gib)

	meta, err := os.ReadFile(filepath.Join(outputDir, "demo.meta"))
	require.NoError(t, err)
	assert.Contains(t, string(meta), "vol1-file = rhcos")

	ovf, err := os.ReadFile(filepath.Join(outputDir, "demo.ovf"))
	require.NoError(t, err)
	assert.Contains(t, string(ovf), fmt.Sprintf(`"%d"`, 2*gib))

	assertScratchDirEmpty(t, options.TempDir)
}
