// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterapi

import (
	"fmt"
	"slices"
)

type DistributionType string

const (
	DistributionTypeNone   DistributionType = ""
	DistributionTypeCoreOS DistributionType = "coreos"
	DistributionTypeRhel   DistributionType = "rhel"
	DistributionTypeCentOS DistributionType = "centos"
)

var supportedDistributionTypes = []string{
	string(DistributionTypeCoreOS),
	string(DistributionTypeRhel),
	string(DistributionTypeCentOS),
}

func (d DistributionType) IsValid() error {
	if d != DistributionTypeNone && !slices.Contains(supportedDistributionTypes, string(d)) {
		return fmt.Errorf("invalid distribution (%s): must be one of %v", d, supportedDistributionTypes)
	}
	return nil
}

// RequiresCustomization reports whether the guest is modified in place before packaging.
func (d DistributionType) RequiresCustomization() bool {
	return d == DistributionTypeRhel || d == DistributionTypeCentOS
}

// RequiresSubscription reports whether the guest must be registered with the vendor
// subscription service during customization.
func (d DistributionType) RequiresSubscription() bool {
	return d == DistributionTypeRhel
}

func SupportedDistributionTypes() []string {
	return supportedDistributionTypes
}
