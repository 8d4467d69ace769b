// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterlib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/ovadescriptors"
)

const (
	// PowerVS only accepts "rhel" as the OS type of imported volumes, whatever the distribution.
	volumeOsType        = "rhel"
	volumeArchitecture  = "ppc64le"
	volumeOsDescription = "RHEL"
)

// writeDescriptors measures the final raw volume and writes the meta and OVF files next to it.
func (p *pipeline) writeDescriptors(ctx context.Context) error {
	info, err := os.Stat(p.rawVolumePath)
	if err != nil {
		return fmt.Errorf("%w:\nfailed to measure raw volume:\n%w", ErrDescriptors, err)
	}
	p.volumeSizeBytes = info.Size()

	logger.Log.Infof("Writing descriptors for %d byte volume", p.volumeSizeBytes)

	meta, err := ovadescriptors.RenderMeta(ovadescriptors.MetaParams{
		ImageName:    p.job.Name,
		OsType:       volumeOsType,
		Architecture: volumeArchitecture,
	})
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrDescriptors, err)
	}

	ovf, err := ovadescriptors.RenderOvf(ovadescriptors.OvfParams{
		ImageName:       p.job.Name,
		VolumeName:      p.job.VolumeName,
		VolumeSizeBytes: p.volumeSizeBytes,
		OsDescription:   volumeOsDescription,
		Architecture:    volumeArchitecture,
	})
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrDescriptors, err)
	}

	descriptors := []struct {
		name    string
		content string
	}{
		{p.job.MetaFileName(), meta},
		{p.job.OvfFileName(), ovf},
	}

	for _, descriptor := range descriptors {
		err = os.WriteFile(filepath.Join(p.ws.stagingDir(), descriptor.name), []byte(descriptor.content), 0o644)
		if err != nil {
			return fmt.Errorf("%w:\nfailed to write (%s):\n%w", ErrDescriptors, descriptor.name, err)
		}
	}

	return nil
}
