// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterlib

import (
	"errors"
	"fmt"
	"os"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/hashicorp/go-multierror"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/safeloopback"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/safemount"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/shell"
)

// Partition 1 is the PReP boot partition, partition 2 the root filesystem.
const guestRootPartitionNum = 2

type bindMount struct {
	// Host path.
	source string
	// Path inside the guest root.
	target string
}

// Mount order matters: release happens in reverse.
var defaultBindMounts = []bindMount{
	{"/proc", "/proc"},
	{"/dev", "/dev"},
	{"/sys", "/sys"},
	{"/run", "/run"},
	{"/etc/machine-id", "/etc/machine-id"},
}

// guestConnection is the guest root filesystem of a raw volume, mounted through a loop
// device together with the host's special directories.
type guestConnection struct {
	loopback *safeloopback.Loopback
	mounts   *safemount.MountSet
	rootDir  string
}

// connectToGuest binds rawVolumePath to a loop device and mounts the guest root at rootDir.
// On failure everything acquired so far is released before returning.
func connectToGuest(executor shell.Executor, rawVolumePath string, rootDir string, bindMounts []bindMount,
	mountSetOptions ...safemount.MountSetOption,
) (*guestConnection, error) {
	loopback, err := safeloopback.NewLoopback(executor, rawVolumePath)
	if err != nil {
		if errors.Is(err, safeloopback.ErrPartitionProbe) {
			return nil, fmt.Errorf("%w:\n%w", ErrPartitionProbe, err)
		}
		return nil, fmt.Errorf("%w:\n%w", ErrLoopDevice, err)
	}

	err = loopback.WaitForPartition(guestRootPartitionNum)
	if err != nil {
		loopback.Close()
		return nil, fmt.Errorf("%w:\n%w", ErrPartitionProbe, err)
	}

	connection := &guestConnection{
		loopback: loopback,
		mounts:   safemount.NewMountSet(executor, mountSetOptions...),
		rootDir:  rootDir,
	}

	err = connection.mountAll(bindMounts)
	if err != nil {
		releaseErr := connection.release()
		if releaseErr != nil {
			logger.Log.Warnf("Failed to roll back guest mounts:\n%v", releaseErr)
		}
		return nil, fmt.Errorf("%w:\n%w", ErrMount, err)
	}

	return connection, nil
}

func (c *guestConnection) mountAll(bindMounts []bindMount) error {
	err := os.MkdirAll(c.rootDir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create mount directory (%s):\n%w", c.rootDir, err)
	}

	// XFS refuses to mount a filesystem whose UUID is already mounted, which is the
	// case when the host was built from the same image.
	err = c.mounts.Mount(c.loopback.PartitionDevPath(guestRootPartitionNum), c.rootDir, "", []string{"nouuid"})
	if err != nil {
		return err
	}

	for _, bind := range bindMounts {
		// Resolve guest symlinks inside the guest root, never on the host.
		target, err := securejoin.SecureJoin(c.rootDir, bind.target)
		if err != nil {
			return fmt.Errorf("failed to resolve (%s) inside guest root:\n%w", bind.target, err)
		}

		err = c.mounts.BindMount(bind.source, target)
		if err != nil {
			return err
		}
	}

	return nil
}

// release unmounts everything in reverse order and then detaches the loop device. Every
// step is attempted; failures are returned together.
func (c *guestConnection) release() error {
	var result *multierror.Error

	err := c.mounts.Release()
	if err != nil {
		result = multierror.Append(result, err)
	}

	err = c.loopback.CleanClose()
	if err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}
