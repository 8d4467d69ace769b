// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterlib

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/compression"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/file"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/remotefile"
)

// stageSource downloads or copies the source into the workspace and decompresses it
// when its name carries a known compression suffix.
func (p *pipeline) stageSource(ctx context.Context) error {
	stagedPath := filepath.Join(p.ws.sourceDir(), p.job.SourceFileName)

	if remotefile.IsRemote(p.job.Source) {
		_, err := p.deps.downloader.Download(ctx, p.job.Source, stagedPath)
		if err != nil {
			return fmt.Errorf("%w:\n%w", ErrFetch, err)
		}
	} else {
		logger.Log.Infof("Copying (%s)", p.job.Source)

		err := file.Copy(p.job.Source, stagedPath)
		if err != nil {
			return fmt.Errorf("%w:\n%w", ErrFetch, err)
		}
	}

	format, isCompressed := compression.FormatFromFileName(stagedPath)
	if !isCompressed {
		p.qcow2Path = stagedPath
		return nil
	}

	decompressedPath := strings.TrimSuffix(stagedPath, filepath.Ext(stagedPath))

	logger.Log.Infof("Extracting (%s) image", format)

	err := compression.Decompress(format, stagedPath, decompressedPath)
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrDecompress, err)
	}

	// The compressed copy is no longer needed and can be as large as the image itself.
	err = file.RemoveFileIfExists(stagedPath)
	if err != nil {
		logger.Log.Warnf("Failed to remove (%s): %v", stagedPath, err)
	}

	p.qcow2Path = decompressedPath
	return nil
}
