// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterlib

import (
	"context"
	"fmt"
	"time"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/hostlock"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/remotefile"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/safemount"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/shell"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type PipelineState string

const (
	StateValidated          PipelineState = "Validated"
	StateWorkspaceAcquired  PipelineState = "WorkspaceAcquired"
	StateSourceStaged       PipelineState = "SourceStaged"
	StateConverted          PipelineState = "Converted"
	StateCustomized         PipelineState = "Customized"
	StateResized            PipelineState = "Resized"
	StateDescriptorsWritten PipelineState = "DescriptorsWritten"
	StatePackaged           PipelineState = "Packaged"
	StateCompressed         PipelineState = "Compressed"
	StatePublished          PipelineState = "Published"
	StateDone               PipelineState = "Done"
	StateFailed             PipelineState = "Failed"
	StateCleaned            PipelineState = "Cleaned"
)

type sourceDownloader interface {
	Download(ctx context.Context, sourceUrl string, destPath string) (int64, error)
}

type hostLockReleaser interface {
	Release() error
}

// pipelineDeps are the host facing collaborators of a pipeline.
type pipelineDeps struct {
	executor        shell.Executor
	downloader      sourceDownloader
	runChroot       chrootRunner
	acquireHostLock func(ctx context.Context, path string) (hostLockReleaser, error)
	mountsUnder     func(dir string) ([]string, error)
	mountSetOptions []safemount.MountSetOption
	bindMounts      []bindMount
}

func defaultPipelineDeps() pipelineDeps {
	return pipelineDeps{
		executor:   shell.NewHostExecutor(),
		downloader: remotefile.NewDownloader(),
		runChroot:  runInChroot,
		acquireHostLock: func(ctx context.Context, path string) (hostLockReleaser, error) {
			return hostlock.Acquire(ctx, path)
		},
		mountsUnder: safemount.MountsUnder,
		bindMounts:  defaultBindMounts,
	}
}

type pipelineStage struct {
	name  string
	state PipelineState
	run   func(ctx context.Context) error
}

// pipeline runs one ConversionJob through every stage and always tears down its workspace.
type pipeline struct {
	job  *ConversionJob
	deps pipelineDeps

	history  []PipelineState
	rootSpan trace.Span

	ws              *workspace
	qcow2Path       string
	rawVolumePath   string
	volumeSizeBytes int64
	ovaPath         string
	ovaGzPath       string
	artifactPath    string
}

func newPipeline(job *ConversionJob, deps pipelineDeps) *pipeline {
	return &pipeline{
		job:  job,
		deps: deps,
	}
}

func (p *pipeline) stages() []pipelineStage {
	stages := []pipelineStage{
		{"acquire_workspace", StateWorkspaceAcquired, p.acquireWorkspace},
		{"stage_source", StateSourceStaged, p.stageSource},
		{"convert_to_raw", StateConverted, p.convertToRaw},
	}

	if p.job.Distribution.RequiresCustomization() {
		stages = append(stages, pipelineStage{"customize_guest", StateCustomized, p.customizeGuest})
	}

	return append(stages,
		pipelineStage{"resize_volume", StateResized, p.resizeVolume},
		pipelineStage{"write_descriptors", StateDescriptorsWritten, p.writeDescriptors},
		pipelineStage{"package", StatePackaged, p.packageArtifact},
		pipelineStage{"compress", StateCompressed, p.compressArtifact},
		pipelineStage{"publish", StatePublished, p.publishArtifact},
	)
}

func (p *pipeline) run(ctx context.Context) (err error) {
	ctx, p.rootSpan = telemetry.Tracer().Start(ctx, "convert_qcow2_ova")
	p.rootSpan.SetAttributes(
		attribute.String("distribution", string(p.job.Distribution)),
		attribute.Int("size_gb", int(p.job.SizeGB)),
	)
	defer func() {
		recordSpanError(p.rootSpan, err)
		p.rootSpan.End()
	}()

	p.advance(StateValidated)

	defer func() {
		if err != nil {
			p.advance(StateFailed)
		} else {
			p.advance(StateDone)
		}

		p.teardown()
		p.advance(StateCleaned)

		logger.Log.Debugf("Pipeline states: %v", p.history)
	}()

	for _, stage := range p.stages() {
		err = p.runStage(ctx, stage)
		if err != nil {
			return err
		}
	}

	return nil
}

// runStage starts stage only if ctx is still live. A started stage always runs to completion.
func (p *pipeline) runStage(ctx context.Context, stage pipelineStage) (err error) {
	err = ctx.Err()
	if err != nil {
		return fmt.Errorf("%w before stage (%s):\n%w", ErrCancelled, stage.name, err)
	}

	ctx, span := telemetry.Tracer().Start(ctx, stage.name)
	defer func() {
		recordSpanError(span, err)
		span.End()
	}()

	logger.Log.Debugf("Starting stage (%s)", stage.name)
	startTime := time.Now()

	err = stage.run(ctx)
	if err != nil {
		return fmt.Errorf("stage (%s) failed:\n%w", stage.name, err)
	}

	logger.Log.Debugf("Finished stage (%s) in %s", stage.name, time.Since(startTime).Round(time.Millisecond))
	p.advance(stage.state)
	return nil
}

func (p *pipeline) advance(state PipelineState) {
	p.history = append(p.history, state)
	if p.rootSpan != nil {
		p.rootSpan.AddEvent(string(state))
	}
	logger.Log.Debugf("Pipeline state: %s", state)
}

// teardown releases the workspace. Failures are warnings so they never mask a stage error.
func (p *pipeline) teardown() {
	if p.ws == nil {
		return
	}

	err := p.ws.remove(p.deps.mountsUnder)
	if err != nil {
		logger.Log.Warnf("Failed to clean up workspace:\n%v", err)
		return
	}

	p.ws = nil
}

func (p *pipeline) acquireWorkspace(ctx context.Context) error {
	ws, err := newWorkspace(p.job.ScratchDir)
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrWorkspace, err)
	}

	p.ws = ws
	logger.Log.Infof("Using workspace (%s)", ws.Dir())
	return nil
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}

	errorNames := []string{"Unset"}
	if namedErrors := GetAllOvaConverterErrors(err); len(namedErrors) > 0 {
		errorNames = make([]string, len(namedErrors))
		for i, namedError := range namedErrors {
			errorNames[i] = namedError.Name()
		}
	}

	span.SetAttributes(
		attribute.StringSlice("errors.name", errorNames),
	)
	span.SetStatus(codes.Error, errorNames[len(errorNames)-1])
}
