// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterlib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/shell"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/version"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/ovaconverterapi"
	"github.com/sirupsen/logrus"
)

const qemuImgStderrLines = 10

func (p *pipeline) convertToRaw(ctx context.Context) error {
	logQemuImgVersion(p.deps.executor)

	rawVolumePath := filepath.Join(p.ws.stagingDir(), p.job.VolumeName)

	logger.Log.Infof("Converting (%s) to raw", filepath.Base(p.qcow2Path))

	err := convertQcow2ToRaw(p.deps.executor, p.qcow2Path, rawVolumePath)
	if err != nil {
		return err
	}

	p.rawVolumePath = rawVolumePath
	return nil
}

func (p *pipeline) resizeVolume(ctx context.Context) error {
	logger.Log.Infof("Resizing volume to %dG", p.job.SizeGB)

	return resizeRawVolume(p.deps.executor, p.rawVolumePath, p.job.SizeGB)
}

func convertQcow2ToRaw(executor shell.Executor, sourcePath string, rawVolumePath string) error {
	err := shell.NewExecBuilder(executor, "qemu-img", "convert", "-f", "qcow2", "-O", "raw", sourcePath, rawVolumePath).
		LogLevel(logrus.DebugLevel, logrus.DebugLevel).
		ErrorStderrLines(qemuImgStderrLines).
		Execute()
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrConversionTool, err)
	}

	return nil
}

// resizeRawVolume grows the raw volume to sizeGB gibibytes. Shrinking is refused since it
// would cut off guest data.
func resizeRawVolume(executor shell.Executor, rawVolumePath string, sizeGB uint) error {
	info, err := os.Stat(rawVolumePath)
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrResizeTool, err)
	}

	if sizeGB > ovaconverterapi.MaxSizeGB {
		return fmt.Errorf("%w: requested %dG exceeds %dG", ErrResizeTool, sizeGB, ovaconverterapi.MaxSizeGB)
	}

	requestedBytes := int64(sizeGB) * gib
	if info.Size() > requestedBytes {
		return fmt.Errorf("%w: volume is already %d bytes, larger than the requested %dG", ErrResizeTool,
			info.Size(), sizeGB)
	}

	err = shell.NewExecBuilder(executor, "qemu-img", "resize", "-f", "raw", rawVolumePath,
		strconv.FormatUint(uint64(sizeGB), 10)+"G").
		LogLevel(logrus.DebugLevel, logrus.DebugLevel).
		ErrorStderrLines(qemuImgStderrLines).
		Execute()
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrResizeTool, err)
	}

	return nil
}

func logQemuImgVersion(executor shell.Executor) {
	stdout, _, err := shell.NewExecBuilder(executor, "qemu-img", "--version").
		LogLevel(logrus.TraceLevel, logrus.DebugLevel).
		ExecuteCaptureOutput()
	if err != nil {
		logger.Log.Debugf("Failed to query qemu-img version: %v", err)
		return
	}

	qemuImgVersion, err := version.FindInText(stdout, "qemu-img version ")
	if err != nil {
		logger.Log.Debugf("Failed to parse qemu-img version: %v", err)
		return
	}

	logger.Log.Infof("qemu-img version: %s", qemuImgVersion)
}
