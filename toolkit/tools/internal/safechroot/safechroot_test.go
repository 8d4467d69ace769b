// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package safechroot

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/stretchr/testify/assert"
)

type fakeSyscalls struct {
	calls    []string
	failOn   map[string]error
	openedFd int
}

func newFakeSyscalls() *fakeSyscalls {
	return &fakeSyscalls{failOn: map[string]error{}, openedFd: 7}
}

func (f *fakeSyscalls) record(call string) error {
	f.calls = append(f.calls, call)
	return f.failOn[call]
}

func (f *fakeSyscalls) Getwd() (string, error) {
	return "/work", f.record("getwd")
}

func (f *fakeSyscalls) Open(path string, mode int, perm uint32) (int, error) {
	err := f.record("open " + path)
	if err != nil {
		return -1, err
	}
	return f.openedFd, nil
}

func (f *fakeSyscalls) Chroot(path string) error { return f.record("chroot " + path) }
func (f *fakeSyscalls) Chdir(path string) error  { return f.record("chdir " + path) }
func (f *fakeSyscalls) Fchdir(fd int) error      { return f.record(fmt.Sprintf("fchdir %d", fd)) }
func (f *fakeSyscalls) Close(fd int) error       { return f.record(fmt.Sprintf("close %d", fd)) }

func TestMain(m *testing.M) {
	logger.InitStderrLog()
	os.Exit(m.Run())
}

func newTestChroot(sys *fakeSyscalls) *Chroot {
	chroot := NewChroot("/scratch/mnt")
	chroot.sys = sys
	return chroot
}

var fullSequence = []string{
	"getwd",
	"open /",
	"chroot /scratch/mnt",
	"chdir /",
	"fchdir 7",
	"chroot .",
	"chdir /work",
	"close 7",
}

func TestRunRestoresAfterSuccess(t *testing.T) {
	sys := newFakeSyscalls()
	ran := false

	err := newTestChroot(sys).Run(func() error {
		ran = true
		assert.Equal(t, fullSequence[:4], sys.calls)
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, fullSequence, sys.calls)
}

func TestRunRestoresAfterFailure(t *testing.T) {
	sys := newFakeSyscalls()
	scriptErr := errors.New("script exited with code 1")

	err := newTestChroot(sys).Run(func() error {
		return scriptErr
	})

	assert.ErrorIs(t, err, scriptErr)
	assert.NotErrorIs(t, err, ErrRestoreRoot)
	assert.Equal(t, fullSequence, sys.calls)
}

func TestRunRestoresAfterPanic(t *testing.T) {
	sys := newFakeSyscalls()

	assert.Panics(t, func() {
		newTestChroot(sys).Run(func() error {
			panic("boom")
		})
	})
	assert.Equal(t, fullSequence, sys.calls)
}

func TestRunRestoreFailureIsDistinct(t *testing.T) {
	sys := newFakeSyscalls()
	sys.failOn["chroot ."] = errors.New("operation not permitted")
	scriptErr := errors.New("script exited with code 1")

	err := newTestChroot(sys).Run(func() error {
		return scriptErr
	})

	assert.ErrorIs(t, err, ErrRestoreRoot)
	assert.ErrorIs(t, err, scriptErr)
	assert.ErrorContains(t, err, "operation not permitted")

	// The working directory is not touched after a failed chroot, but the descriptor is closed.
	assert.Equal(t, []string{
		"getwd", "open /", "chroot /scratch/mnt", "chdir /", "fchdir 7", "chroot .", "close 7",
	}, sys.calls)
}

func TestRunFchdirFailureSkipsChroot(t *testing.T) {
	sys := newFakeSyscalls()
	sys.failOn["fchdir 7"] = errors.New("bad file descriptor")

	err := newTestChroot(sys).Run(func() error { return nil })

	assert.ErrorIs(t, err, ErrRestoreRoot)
	assert.NotContains(t, sys.calls, "chroot .")
	assert.Equal(t, "close 7", sys.calls[len(sys.calls)-1])
}

func TestRunEnterFailureClosesDescriptor(t *testing.T) {
	sys := newFakeSyscalls()
	sys.failOn["chroot /scratch/mnt"] = errors.New("no such file or directory")
	ran := false

	err := newTestChroot(sys).Run(func() error {
		ran = true
		return nil
	})

	assert.ErrorIs(t, err, ErrEnterRoot)
	assert.NotErrorIs(t, err, ErrRestoreRoot)
	assert.False(t, ran)
	assert.Equal(t, []string{"getwd", "open /", "chroot /scratch/mnt", "close 7"}, sys.calls)
}

func TestRunChdirFailureAfterEnterRestores(t *testing.T) {
	sys := newFakeSyscalls()
	sys.failOn["chdir /"] = errors.New("permission denied")

	err := newTestChroot(sys).Run(func() error { return nil })

	assert.ErrorIs(t, err, ErrEnterRoot)
	assert.Equal(t, fullSequence, sys.calls)
}

func TestRunOpenFailure(t *testing.T) {
	sys := newFakeSyscalls()
	sys.failOn["open /"] = errors.New("too many open files")

	err := newTestChroot(sys).Run(func() error { return nil })

	assert.ErrorIs(t, err, ErrEnterRoot)
	assert.Equal(t, []string{"getwd", "open /"}, sys.calls)
}
