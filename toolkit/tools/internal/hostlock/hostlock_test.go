// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package hostlock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitStderrLog()
	os.Exit(m.Run())
}

func TestTryAcquireExcludesSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock", "ovaconverter.lock")

	first, err := TryAcquire(path)
	require.NoError(t, err)

	_, err = TryAcquire(path)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, first.Release())

	second, err := TryAcquire(path)
	require.NoError(t, err)
	assert.NoError(t, second.Release())
	assert.NoError(t, second.Release())
}

func TestAcquireGivesUpOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ovaconverter.lock")

	holder, err := TryAcquire(path)
	require.NoError(t, err)
	defer holder.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = Acquire(ctx, path)
	assert.Error(t, err)
}

func TestAcquireFreeLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ovaconverter.lock")

	lock, err := Acquire(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, lock.Path())
	assert.NoError(t, lock.Release())
}
