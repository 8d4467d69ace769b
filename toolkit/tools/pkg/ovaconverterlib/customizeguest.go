// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterlib

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/file"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/ovadescriptors"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/safechroot"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/shell"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/targetos"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/ovaconverterapi"
	"github.com/sirupsen/logrus"
)

const (
	customizeScriptName  = "ovaconverter-customize.sh"
	guestCloudConfigPath = "/etc/cloud/cloud.cfg"

	guestNameserver = "9.9.9.9"
	cloudInitRpmUrl = "http://public.dhe.ibm.com/systems/virtualization/powervc/rhel8_cloud_init/cloud-init-19.1-8.ibm.el8.noarch.rpm"
	powerRepoRpmUrl = "http://public.dhe.ibm.com/software/server/POWER/Linux/yum/download/ibm-power-repo-latest.noarch.rpm"

	customizeScriptStderrLines = 20
)

// chrootRunner runs fn with rootDir as the process root and restores the original root
// before returning.
type chrootRunner func(rootDir string, fn func() error) error

func runInChroot(rootDir string, fn func() error) error {
	return safechroot.NewChroot(rootDir).Run(fn)
}

// customizeGuest mounts the guest root of the raw volume and runs the customization
// script inside it. The host lock is held for the whole step.
func (p *pipeline) customizeGuest(ctx context.Context) error {
	lock, err := p.deps.acquireHostLock(ctx, p.job.HostLockFile)
	if err != nil {
		return fmt.Errorf("%w (%s):\n%w", ErrHostLock, p.job.HostLockFile, err)
	}
	defer func() {
		releaseErr := lock.Release()
		if releaseErr != nil {
			logger.Log.Warnf("Failed to release host lock (%s): %v", p.job.HostLockFile, releaseErr)
		}
	}()

	logger.Log.Infof("Customizing %s guest", p.job.Distribution)

	connection, err := connectToGuest(p.deps.executor, p.rawVolumePath, p.ws.mountDir(), p.deps.bindMounts,
		p.deps.mountSetOptions...)
	if err != nil {
		return err
	}
	defer func() {
		releaseErr := connection.release()
		if releaseErr != nil {
			logger.Log.Warnf("Failed to release guest mounts:\n%v", releaseErr)
		}
	}()

	checkGuestDistribution(connection.rootDir, p.job.Distribution)

	return customizeGuestRoot(p.deps.executor, p.deps.runChroot, connection.rootDir, p.job.Distribution,
		p.job.Credentials)
}

// checkGuestDistribution warns when the guest does not look like the requested distribution.
func checkGuestDistribution(rootDir string, distribution ovaconverterapi.DistributionType) {
	installed, err := targetos.GetInstalledTargetOs(rootDir)
	if err != nil {
		logger.Log.Warnf("Failed to identify guest OS:\n%v", err)
		return
	}

	if installed != distribution {
		logger.Log.Warnf("Guest OS is (%s) but (%s) was requested", installed, distribution)
	}
}

func customizeGuestRoot(executor shell.Executor, runChroot chrootRunner, rootDir string,
	distribution ovaconverterapi.DistributionType, credentials ovaconverterapi.Credentials,
) error {
	script, err := ovadescriptors.RenderCustomizationScript(ovadescriptors.ScriptParams{
		RequiresSubscription: distribution.RequiresSubscription(),
		SubscriptionUsername: credentials.SubscriptionUsername,
		SubscriptionPassword: credentials.SubscriptionPassword,
		RootPassword:         credentials.RootPassword,
		Nameserver:           guestNameserver,
		CloudInitRpmUrl:      cloudInitRpmUrl,
		PowerRepoRpmUrl:      powerRepoRpmUrl,
	})
	if err != nil {
		return fmt.Errorf("%w:\nfailed to render customization script:\n%w", ErrCustomization, err)
	}

	cloudConfig, err := ovadescriptors.RenderCloudConfig(ovadescriptors.CloudConfigParams{
		Distro:          string(distribution),
		DefaultUserName: string(distribution),
	})
	if err != nil {
		return fmt.Errorf("%w:\nfailed to render cloud-init config:\n%w", ErrCustomization, err)
	}

	scriptHostPath, err := writeGuestFile(rootDir, customizeScriptName, []byte(script), 0o755)
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrCustomization, err)
	}

	rootRestored := true
	defer func() {
		if !rootRestored {
			return
		}

		// The script holds credentials.
		removeErr := file.RemoveFileIfExists(scriptHostPath)
		if removeErr != nil {
			logger.Log.Warnf("Failed to remove customization script (%s): %v", scriptHostPath, removeErr)
		}
	}()

	_, err = writeGuestFile(rootDir, guestCloudConfigPath, []byte(cloudConfig), 0o644)
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrCustomization, err)
	}

	logger.Log.Infof("Running customization script")

	err = runChroot(rootDir, func() error {
		return shell.NewExecBuilder(executor, "/"+customizeScriptName).
			WorkingDirectory("/").
			LogLevel(logrus.DebugLevel, logrus.DebugLevel).
			ErrorStderrLines(customizeScriptStderrLines).
			Execute()
	})
	switch {
	case err == nil:
		return nil

	case errors.Is(err, safechroot.ErrRestoreRoot):
		rootRestored = false
		return fmt.Errorf("%w:\n%w", ErrRootRestore, err)

	default:
		return fmt.Errorf("%w:\n%w", ErrCustomization, err)
	}
}

// writeGuestFile writes data to guestPath inside rootDir, resolving symlinks relative to
// rootDir so a hostile guest cannot redirect the write onto the host. Any existing file is
// replaced. Returns the host path written.
func writeGuestFile(rootDir string, guestPath string, data []byte, perm os.FileMode) (string, error) {
	hostPath, err := securejoin.SecureJoin(rootDir, guestPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve (%s) inside guest root:\n%w", guestPath, err)
	}

	err = os.MkdirAll(filepath.Dir(hostPath), 0o755)
	if err != nil {
		return "", fmt.Errorf("failed to create directory for (%s):\n%w", guestPath, err)
	}

	err = file.RemoveFileIfExists(hostPath)
	if err != nil {
		return "", fmt.Errorf("failed to replace (%s):\n%w", guestPath, err)
	}

	guestFile, err := os.OpenFile(hostPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return "", fmt.Errorf("failed to create (%s):\n%w", guestPath, err)
	}
	defer guestFile.Close()

	_, err = guestFile.Write(data)
	if err != nil {
		return "", fmt.Errorf("failed to write (%s):\n%w", guestPath, err)
	}

	// OpenFile honors the umask.
	err = guestFile.Chmod(perm)
	if err != nil {
		return "", fmt.Errorf("failed to set mode of (%s):\n%w", guestPath, err)
	}

	err = guestFile.Close()
	if err != nil {
		return "", fmt.Errorf("failed to write (%s):\n%w", guestPath, err)
	}

	return hostPath, nil
}
