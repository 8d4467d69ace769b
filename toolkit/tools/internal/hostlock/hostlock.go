// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package hostlock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"golang.org/x/sys/unix"
)

const (
	DefaultLockFile = "/run/lock/ovaconverter.lock"

	pollInterval = 2 * time.Second
)

var ErrLockHeld = errors.New("host lock is held by another process")

// Lock is an exclusive advisory lock shared by every process on the host.
type Lock struct {
	path string
	file *os.File
}

// TryAcquire takes the lock without waiting.
func TryAcquire(path string) (*Lock, error) {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create lock directory (%s):\n%w", filepath.Dir(path), err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file (%s):\n%w", path, err)
	}

	err = unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w (%s)", ErrLockHeld, path)
		}
		return nil, fmt.Errorf("failed to lock (%s):\n%w", path, err)
	}

	return &Lock{path: path, file: file}, nil
}

// Acquire waits for the lock until ctx is done.
func Acquire(ctx context.Context, path string) (*Lock, error) {
	var lock *Lock
	logged := false

	operation := func() error {
		var err error
		lock, err = TryAcquire(path)
		switch {
		case err == nil:
			return nil

		case errors.Is(err, ErrLockHeld):
			if !logged {
				logger.Log.Infof("Waiting for another conversion on this host to release (%s)", path)
				logged = true
			}
			return err

		default:
			return backoff.Permanent(err)
		}
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.NewConstantBackOff(pollInterval), ctx))
	if err != nil {
		return nil, err
	}

	return lock, nil
}

func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock. The lock file itself is left in place for the next job.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}

	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	return errors.Join(err, closeErr)
}
