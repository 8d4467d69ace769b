// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package safeloopback

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/shell"
	"github.com/sirupsen/logrus"
)

var (
	ErrAttach         = errors.New("failed to attach loop device")
	ErrPartitionProbe = errors.New("failed to probe partition table")
)

const (
	partitionWaitInterval = 200 * time.Millisecond
	partitionWaitTimeout  = 10 * time.Second
)

// Loopback is one loop device bound to a disk image file.
type Loopback struct {
	executor     shell.Executor
	devicePath   string
	diskFilePath string
	isAttached   bool
}

// NewLoopback binds the next free loop device to diskFilePath with partition scanning
// and re-reads its partition table. On failure nothing stays attached.
func NewLoopback(executor shell.Executor, diskFilePath string) (*Loopback, error) {
	diskFilePathAbs, err := filepath.Abs(diskFilePath)
	if err != nil {
		return nil, fmt.Errorf("%w (%s):\n%w", ErrAttach, diskFilePath, err)
	}

	loopback := &Loopback{
		executor:     executor,
		diskFilePath: diskFilePathAbs,
	}

	err = loopback.attach()
	if err != nil {
		return nil, err
	}

	err = loopback.probePartitions()
	if err != nil {
		loopback.Close()
		return nil, err
	}

	return loopback, nil
}

func (l *Loopback) DevicePath() string {
	return l.devicePath
}

// PartitionDevPath returns the device node of partition number partitionNum.
func (l *Loopback) PartitionDevPath(partitionNum int) string {
	return fmt.Sprintf("%sp%d", l.devicePath, partitionNum)
}

// WaitForPartition blocks until the partition's device node shows up.
func (l *Loopback) WaitForPartition(partitionNum int) error {
	partitionPath := l.PartitionDevPath(partitionNum)

	policy := backoff.NewConstantBackOff(partitionWaitInterval)
	timeout := backoff.WithMaxRetries(policy, uint64(partitionWaitTimeout/partitionWaitInterval))

	err := backoff.Retry(func() error {
		_, err := os.Stat(partitionPath)
		return err
	}, timeout)
	if err != nil {
		return fmt.Errorf("%w: partition device (%s) did not appear:\n%w", ErrPartitionProbe, partitionPath, err)
	}

	return nil
}

func (l *Loopback) attach() error {
	logger.Log.Debugf("Attaching loop device to (%s)", l.diskFilePath)

	err := shell.NewExecBuilder(l.executor, "losetup", "--nooverlap", "--partscan", "--find", l.diskFilePath).
		LogLevel(logrus.DebugLevel, logrus.DebugLevel).
		Execute()
	if err != nil {
		return fmt.Errorf("%w (%s):\n%w", ErrAttach, l.diskFilePath, err)
	}

	devicePath, err := l.findDevice()
	if err != nil {
		// The device bound by --find is unknown, so release everything backed by the file.
		detachErr := l.detachByBackingFile()
		if detachErr != nil {
			err = multierror.Append(err, detachErr)
		}
		return fmt.Errorf("%w:\n%w", ErrAttach, err)
	}

	l.devicePath = devicePath
	l.isAttached = true

	logger.Log.Debugf("Attached (%s) to (%s)", l.devicePath, l.diskFilePath)
	return nil
}

func (l *Loopback) findDevice() (string, error) {
	stdout, _, err := shell.NewExecBuilder(l.executor, "losetup", "--list", "--json", "--output", "NAME,BACK-FILE").
		LogLevel(logrus.TraceLevel, logrus.DebugLevel).
		ExecuteCaptureOutput()
	if err != nil {
		return "", fmt.Errorf("failed to list loop devices:\n%w", err)
	}

	return parseLosetupList(stdout, l.diskFilePath)
}

func (l *Loopback) detachByBackingFile() error {
	stdout, _, err := shell.NewExecBuilder(l.executor, "losetup", "--list", "--noheadings", "--output", "NAME",
		"--associated", l.diskFilePath).
		LogLevel(logrus.TraceLevel, logrus.DebugLevel).
		ExecuteCaptureOutput()
	if err != nil {
		return fmt.Errorf("failed to list loop devices backed by (%s):\n%w", l.diskFilePath, err)
	}

	var result error
	for _, devicePath := range strings.Fields(stdout) {
		logger.Log.Debugf("Detaching (%s) from (%s)", devicePath, l.diskFilePath)

		err = shell.NewExecBuilder(l.executor, "losetup", "-d", devicePath).
			LogLevel(logrus.DebugLevel, logrus.DebugLevel).
			Execute()
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to detach loop device (%s):\n%w", devicePath, err))
		}
	}

	return result
}

func (l *Loopback) probePartitions() error {
	err := shell.NewExecBuilder(l.executor, "partprobe", l.devicePath).
		LogLevel(logrus.DebugLevel, logrus.DebugLevel).
		Execute()
	if err != nil {
		return fmt.Errorf("%w (%s):\n%w", ErrPartitionProbe, l.devicePath, err)
	}

	return nil
}

// Close detaches the loop device on a best effort basis.
func (l *Loopback) Close() {
	err := l.close()
	if err != nil {
		logger.Log.Warnf("failed to detach loop device (%s):\n%v", l.devicePath, err)
	}
}

// CleanClose detaches the loop device and reports failures.
func (l *Loopback) CleanClose() error {
	return l.close()
}

func (l *Loopback) close() error {
	if !l.isAttached {
		return nil
	}

	err := shell.NewExecBuilder(l.executor, "losetup", "-d", l.devicePath).
		LogLevel(logrus.DebugLevel, logrus.DebugLevel).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to detach loop device (%s):\n%w", l.devicePath, err)
	}

	l.isAttached = false
	return nil
}
