// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterlib

import (
	"fmt"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/ovaconverterapi"
)

// ConvertOptions are the command line values of a conversion. Non-empty values override
// the matching manifest fields.
type ConvertOptions struct {
	Source               string
	SizeGB               uint
	Name                 string
	Distribution         ovaconverterapi.DistributionType
	SubscriptionUsername string
	SubscriptionPassword string
	RootPassword         string
	TempDir              string
	OutputDir            string
	HostLockFile         string
}

func (o *ConvertOptions) IsValid() error {
	err := o.Distribution.IsValid()
	if err != nil {
		return fmt.Errorf("invalid command-line option '--image-dist':\n%w", err)
	}

	err = ovaconverterapi.ValidateSource(o.Source)
	if err != nil {
		return fmt.Errorf("invalid command-line option '--image-url':\n%w", err)
	}

	err = ovaconverterapi.ValidateSizeGB(o.SizeGB)
	if err != nil {
		return fmt.Errorf("invalid command-line option '--image-size':\n%w", err)
	}

	if o.Name != "" {
		err = ovaconverterapi.ValidateImageName(o.Name)
		if err != nil {
			return fmt.Errorf("invalid command-line option '--image-name':\n%w", err)
		}
	}

	credentials := ovaconverterapi.Credentials{
		SubscriptionUsername: o.SubscriptionUsername,
		SubscriptionPassword: o.SubscriptionPassword,
		RootPassword:         o.RootPassword,
	}
	err = credentials.IsValid()
	if err != nil {
		return fmt.Errorf("invalid credential option:\n%w", err)
	}

	return nil
}

// mergeConfig overlays the options on top of the manifest values.
func (o *ConvertOptions) mergeConfig(config *ovaconverterapi.Config) ovaconverterapi.Config {
	merged := ovaconverterapi.Config{}
	if config != nil {
		merged = *config
	}

	merged.Input.Source = valueOrDefault(o.Source, merged.Input.Source)
	merged.Output.Name = valueOrDefault(o.Name, merged.Output.Name)
	merged.Output.Directory = valueOrDefault(o.OutputDir, merged.Output.Directory)
	if o.SizeGB != 0 {
		merged.Output.SizeGB = o.SizeGB
	}
	if o.Distribution != ovaconverterapi.DistributionTypeNone {
		merged.Distribution = o.Distribution
	}

	merged.Credentials.SubscriptionUsername = valueOrDefault(o.SubscriptionUsername, merged.Credentials.SubscriptionUsername)
	merged.Credentials.SubscriptionPassword = valueOrDefault(o.SubscriptionPassword, merged.Credentials.SubscriptionPassword)
	merged.Credentials.RootPassword = valueOrDefault(o.RootPassword, merged.Credentials.RootPassword)

	return merged
}

func valueOrDefault(value string, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}
