// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterlib

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/osinfo"
	"golang.org/x/sys/unix"
)

const (
	gib = int64(1024 * 1024 * 1024)

	defaultRequiredPlatform     = "el8"
	defaultRequiredArchitecture = "ppc64le"
	defaultSpaceMarginGiB       = 50
)

type HostRequirements struct {
	// Matched against PLATFORM_ID (platform:<Platform>) or the raw os-release text.
	Platform       string
	Architecture   string
	SpaceMarginGiB uint
}

func DefaultHostRequirements() HostRequirements {
	return HostRequirements{
		Platform:       defaultRequiredPlatform,
		Architecture:   defaultRequiredArchitecture,
		SpaceMarginGiB: defaultSpaceMarginGiB,
	}
}

// hostProber provides the read-only host facts preflight needs.
type hostProber interface {
	OsRelease() (osinfo.OsRelease, error)
	Machine() (string, error)
	LookPath(name string) (string, error)
	IsRoot() bool
	AvailableBytes(path string) (int64, error)
}

type systemProber struct{}

func (systemProber) OsRelease() (osinfo.OsRelease, error) {
	return osinfo.ReadOsRelease(osinfo.OsReleasePath)
}

func (systemProber) Machine() (string, error) {
	var uname unix.Utsname
	err := unix.Uname(&uname)
	if err != nil {
		return "", err
	}
	return unix.ByteSliceToString(uname.Machine[:]), nil
}

func (systemProber) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (systemProber) IsRoot() bool {
	return os.Geteuid() == 0
}

func (systemProber) AvailableBytes(path string) (int64, error) {
	var stat unix.Statfs_t
	err := unix.Statfs(path, &stat)
	if err != nil {
		return 0, err
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}

// requiredTools lists the binaries a job runs.
func requiredTools(job *ConversionJob) []string {
	tools := []string{"qemu-img"}
	if job.Distribution.RequiresCustomization() {
		tools = append(tools, "losetup", "partprobe", "mount", "umount")
	}
	return tools
}

// checkHost verifies the host can run job. It has no side effects.
func checkHost(prober hostProber, job *ConversionJob) error {
	requirements := job.Requirements

	release, err := prober.OsRelease()
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrUnsupportedHost, err)
	}
	if !release.MatchesPlatform(requirements.Platform) {
		return fmt.Errorf("%w: (%s) is not an %s system", ErrUnsupportedHost, release.Name, requirements.Platform)
	}

	machine, err := prober.Machine()
	if err != nil {
		return fmt.Errorf("%w:\nfailed to read host architecture:\n%w", ErrHostProbe, err)
	}
	if requirements.Architecture != "" && machine != requirements.Architecture {
		return fmt.Errorf("%w: host is (%s), (%s) is required", ErrUnsupportedArch, machine, requirements.Architecture)
	}

	for _, tool := range requiredTools(job) {
		toolPath, err := prober.LookPath(tool)
		if err != nil {
			return fmt.Errorf("%w: (%s) not found in PATH", ErrMissingDependency, tool)
		}
		logger.Log.Debugf("Using (%s)", toolPath)
	}

	if job.Distribution.RequiresCustomization() && !prober.IsRoot() {
		return fmt.Errorf("%w:\n%w", ErrMissingDependency, ErrToolMustRunAsRoot)
	}

	available, err := prober.AvailableBytes(job.ScratchDir)
	if err != nil {
		return fmt.Errorf("%w:\nfailed to query free space of (%s):\n%w", ErrHostProbe, job.ScratchDir, err)
	}

	// Compared in whole GiB so a huge size cannot overflow into a small byte count.
	availableGiB := uint64(max(available, 0)) / uint64(gib)
	requiredGiB := uint64(job.SizeGB) + uint64(requirements.SpaceMarginGiB)
	if requiredGiB < uint64(job.SizeGB) || availableGiB < requiredGiB {
		return fmt.Errorf("%w: (%s) has %d GiB available, %d GiB required", ErrInsufficientSpace, job.ScratchDir,
			availableGiB, requiredGiB)
	}

	return nil
}
