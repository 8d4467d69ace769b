// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterlib

import (
	"context"
	"fmt"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/compression"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/file"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/tarutils"
)

func (p *pipeline) packageArtifact(ctx context.Context) error {
	ovaPath := p.ws.path(p.job.OvaFileName())

	entries := []string{p.job.VolumeName, p.job.MetaFileName(), p.job.OvfFileName()}
	err := tarutils.CreateTarArchive(ovaPath, p.ws.stagingDir(), entries)
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrPackaging, err)
	}

	p.ovaPath = ovaPath
	return nil
}

func (p *pipeline) compressArtifact(ctx context.Context) error {
	ovaGzPath := p.ovaPath + ".gz"

	logger.Log.Infof("Compressing (%s)", p.job.OvaFileName())

	err := compression.GzipFile(p.deps.executor, p.ovaPath, ovaGzPath)
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrCompression, err)
	}

	p.ovaGzPath = ovaGzPath
	return nil
}

// publishArtifact moves the compressed package out of the workspace. An existing file at
// the destination is never replaced.
func (p *pipeline) publishArtifact(ctx context.Context) error {
	artifactPath := p.job.ArtifactPath()

	exists, err := file.PathExists(artifactPath)
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrPublish, err)
	}
	if exists {
		return fmt.Errorf("%w: (%s) already exists", ErrPublish, artifactPath)
	}

	err = file.MoveNoReplace(p.ovaGzPath, artifactPath)
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrPublish, err)
	}

	p.artifactPath = artifactPath
	logger.Log.Infof("Published (%s)", artifactPath)
	return nil
}
