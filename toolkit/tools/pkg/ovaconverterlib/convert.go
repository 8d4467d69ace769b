// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterlib

import (
	"context"
	"fmt"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/ovaconverterapi"
)

type ConvertResult struct {
	ArtifactPath    string
	VolumeSizeBytes int64
	History         []PipelineState
}

// ConvertWithConfigFile loads the optional YAML manifest at configFile and runs the conversion.
func ConvertWithConfigFile(ctx context.Context, configFile string, options ConvertOptions) (*ConvertResult, error) {
	var config ovaconverterapi.Config
	if configFile != "" {
		err := ovaconverterapi.UnmarshalAndValidateYamlFile(configFile, &config)
		if err != nil {
			return nil, fmt.Errorf("%w (%s):\n%w", ErrInvalidManifest, configFile, err)
		}
	}

	return Convert(ctx, &config, options)
}

// Convert validates the job, checks the host and runs the pipeline. The workspace is
// removed whatever the outcome.
func Convert(ctx context.Context, config *ovaconverterapi.Config, options ConvertOptions) (*ConvertResult, error) {
	job, err := NewConversionJob(config, options)
	if err != nil {
		return nil, err
	}

	err = checkHost(systemProber{}, job)
	if err != nil {
		return nil, err
	}

	return runJob(ctx, job, defaultPipelineDeps())
}

func runJob(ctx context.Context, job *ConversionJob, deps pipelineDeps) (*ConvertResult, error) {
	p := newPipeline(job, deps)

	err := p.run(ctx)
	if err != nil {
		return nil, err
	}

	logger.Log.Infof("Success!")

	return &ConvertResult{
		ArtifactPath:    p.artifactPath,
		VolumeSizeBytes: p.volumeSizeBytes,
		History:         p.history,
	}, nil
}
