// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package targetos

import (
	"errors"
	"fmt"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/osinfo"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/ovaconverterapi"
)

var ErrUnknownTargetOs = errors.New("unknown target OS")

// GetInstalledTargetOs identifies the distribution installed under rootfs from its
// /etc/os-release.
func GetInstalledTargetOs(rootfs string) (ovaconverterapi.DistributionType, error) {
	// os-release is usually a symlink into /usr/lib and must resolve inside rootfs.
	osReleasePath, err := securejoin.SecureJoin(rootfs, osinfo.OsReleasePath)
	if err != nil {
		return ovaconverterapi.DistributionTypeNone, fmt.Errorf("failed to resolve /etc/os-release:\n%w", err)
	}

	release, err := osinfo.ReadOsRelease(osReleasePath)
	if err != nil {
		return ovaconverterapi.DistributionTypeNone, fmt.Errorf("failed to read /etc/os-release file:\n%w", err)
	}

	switch release.Id {
	case "rhel":
		return ovaconverterapi.DistributionTypeRhel, nil

	case "centos":
		return ovaconverterapi.DistributionTypeCentOS, nil

	case "rhcos", "fedora-coreos":
		return ovaconverterapi.DistributionTypeCoreOS, nil

	default:
		return ovaconverterapi.DistributionTypeNone, fmt.Errorf("%w: ID (%s) in /etc/os-release", ErrUnknownTargetOs,
			release.Id)
	}
}
