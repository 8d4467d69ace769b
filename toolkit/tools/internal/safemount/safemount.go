// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package safemount

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/sys/mountinfo"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/shell"
	"github.com/sirupsen/logrus"
)

var ErrMount = errors.New("failed to mount")

// Mount is a single active mount created through the mount(8) tool.
type Mount struct {
	executor  shell.Executor
	source    string
	target    string
	isMounted func(string) (bool, error)
	mounted   bool
}

// NewMount mounts source at target. fstype may be empty to let mount(8) probe it.
func NewMount(executor shell.Executor, source string, target string, fstype string, options []string,
) (*Mount, error) {
	args := []string(nil)
	if fstype != "" {
		args = append(args, "-t", fstype)
	}
	if len(options) > 0 {
		args = append(args, "-o", strings.Join(options, ","))
	}
	args = append(args, source, target)

	err := shell.NewExecBuilder(executor, "mount", args...).
		LogLevel(logrus.DebugLevel, logrus.DebugLevel).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("%w (%s) at (%s):\n%w", ErrMount, source, target, err)
	}

	return &Mount{
		executor:  executor,
		source:    source,
		target:    target,
		isMounted: mountinfo.Mounted,
		mounted:   true,
	}, nil
}

// NewBindMount bind-mounts the host path source onto target, creating target
// (as a directory or an empty file matching source) when it does not exist.
func NewBindMount(executor shell.Executor, source string, target string) (*Mount, error) {
	err := ensureBindTarget(source, target)
	if err != nil {
		return nil, fmt.Errorf("%w (%s) at (%s):\n%w", ErrMount, source, target, err)
	}

	return NewMount(executor, source, target, "", []string{"bind"})
}

func (m *Mount) Target() string {
	return m.target
}

// Close unmounts on a best effort basis.
func (m *Mount) Close() {
	err := m.CleanClose()
	if err != nil {
		logger.Log.Warnf("%v", err)
	}
}

// CleanClose unmounts and reports failures. Targets that are no longer mounted are skipped.
func (m *Mount) CleanClose() error {
	if !m.mounted {
		return nil
	}

	stillMounted, err := m.isMounted(m.target)
	if err != nil {
		logger.Log.Debugf("Failed to query mount table for (%s): %v", m.target, err)
		stillMounted = true
	}

	if stillMounted {
		err = shell.NewExecBuilder(m.executor, "umount", m.target).
			LogLevel(logrus.DebugLevel, logrus.DebugLevel).
			Execute()
		if err != nil {
			return fmt.Errorf("failed to unmount (%s):\n%w", m.target, err)
		}
	} else {
		logger.Log.Debugf("Mount (%s) is already gone", m.target)
	}

	m.mounted = false
	return nil
}

func ensureBindTarget(source string, target string) error {
	sourceInfo, err := os.Stat(source)
	if err != nil {
		return err
	}

	_, err = os.Lstat(target)
	switch {
	case err == nil:
		return nil

	case !os.IsNotExist(err):
		return err
	}

	if sourceInfo.IsDir() {
		return os.MkdirAll(target, 0o755)
	}

	err = os.MkdirAll(filepath.Dir(target), 0o755)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY, 0o444)
	if err != nil {
		return err
	}
	return file.Close()
}
