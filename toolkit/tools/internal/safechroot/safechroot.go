// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package safechroot

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"golang.org/x/sys/unix"
)

var (
	ErrEnterRoot   = errors.New("failed to enter chroot")
	ErrRestoreRoot = errors.New("failed to restore original root")
)

// The root directory is process wide: every thread of a Go process shares it.
var chrootLock sync.Mutex

type syscalls interface {
	Getwd() (string, error)
	Open(path string, mode int, perm uint32) (int, error)
	Chroot(path string) error
	Chdir(path string) error
	Fchdir(fd int) error
	Close(fd int) error
}

type unixSyscalls struct{}

func (unixSyscalls) Getwd() (string, error) { return os.Getwd() }
func (unixSyscalls) Open(path string, mode int, perm uint32) (int, error) {
	return unix.Open(path, mode, perm)
}
func (unixSyscalls) Chroot(path string) error { return unix.Chroot(path) }
func (unixSyscalls) Chdir(path string) error  { return unix.Chdir(path) }
func (unixSyscalls) Fchdir(fd int) error      { return unix.Fchdir(fd) }
func (unixSyscalls) Close(fd int) error       { return unix.Close(fd) }

// Chroot switches the whole process into rootDir for the duration of Run.
type Chroot struct {
	rootDir string
	sys     syscalls
}

func NewChroot(rootDir string) *Chroot {
	return &Chroot{
		rootDir: rootDir,
		sys:     unixSyscalls{},
	}
}

// Run enters the chroot, calls fn and always switches back to the original root and
// working directory, including when fn panics. A failed restore is reported as
// ErrRestoreRoot, joined with fn's own error if there was one.
func (c *Chroot) Run(fn func() error) (err error) {
	chrootLock.Lock()
	defer chrootLock.Unlock()

	originalWd, err := c.sys.Getwd()
	if err != nil {
		return fmt.Errorf("%w (%s): failed to read working directory:\n%w", ErrEnterRoot, c.rootDir, err)
	}

	realRootFd, err := c.sys.Open("/", unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("%w (%s): failed to open real root:\n%w", ErrEnterRoot, c.rootDir, err)
	}

	entered := false
	defer func() {
		restoreErr := c.restore(realRootFd, originalWd, entered)
		if restoreErr == nil {
			return
		}

		if err != nil {
			err = fmt.Errorf("%w:\n%w\nwhile handling:\n%w", ErrRestoreRoot, restoreErr, err)
		} else {
			err = fmt.Errorf("%w:\n%w", ErrRestoreRoot, restoreErr)
		}
	}()

	err = c.sys.Chroot(c.rootDir)
	if err != nil {
		return fmt.Errorf("%w (%s):\n%w", ErrEnterRoot, c.rootDir, err)
	}
	entered = true

	err = c.sys.Chdir("/")
	if err != nil {
		return fmt.Errorf("%w (%s): failed to change directory:\n%w", ErrEnterRoot, c.rootDir, err)
	}

	logger.Log.Debugf("Entered chroot (%s)", c.rootDir)
	return fn()
}

func (c *Chroot) restore(realRootFd int, originalWd string, entered bool) error {
	var restoreErr error

	if entered {
		restoreErr = c.leave(realRootFd, originalWd)
		if restoreErr == nil {
			logger.Log.Debugf("Left chroot (%s)", c.rootDir)
		}
	}

	err := c.sys.Close(realRootFd)
	if err != nil {
		restoreErr = errors.Join(restoreErr, fmt.Errorf("failed to close real root descriptor:\n%w", err))
	}

	return restoreErr
}

func (c *Chroot) leave(realRootFd int, originalWd string) error {
	err := c.sys.Fchdir(realRootFd)
	if err != nil {
		// Without the real root as working directory, chroot(".") would pick the wrong root.
		return fmt.Errorf("failed to change directory to real root:\n%w", err)
	}

	err = c.sys.Chroot(".")
	if err != nil {
		return fmt.Errorf("failed to chroot back to real root:\n%w", err)
	}

	err = c.sys.Chdir(originalWd)
	if err != nil {
		return fmt.Errorf("failed to return to working directory (%s):\n%w", originalWd, err)
	}

	return nil
}
