// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterapi

import (
	"fmt"
	"regexp"
)

var imageNameRegex = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9._-]*$`)

// MaxSizeGB is the largest volume capacity accepted (1 PiB).
const MaxSizeGB uint = 1 << 20

type Output struct {
	// Artifact name. The package is written as <name>.ova.gz.
	Name string `yaml:"name" json:"name,omitempty"`
	// Volume capacity in whole gigabytes.
	SizeGB uint `yaml:"sizeGB" json:"sizeGB,omitempty"`
	// Directory that receives the package. Defaults to the working directory.
	Directory string `yaml:"directory" json:"directory,omitempty"`
}

func (o Output) IsValid() error {
	if o.Name != "" {
		err := ValidateImageName(o.Name)
		if err != nil {
			return fmt.Errorf("invalid 'name' field:\n%w", err)
		}
	}

	err := ValidateSizeGB(o.SizeGB)
	if err != nil {
		return fmt.Errorf("invalid 'sizeGB' field:\n%w", err)
	}

	return nil
}

func ValidateSizeGB(sizeGB uint) error {
	if sizeGB > MaxSizeGB {
		return fmt.Errorf("size (%d) must not exceed %d", sizeGB, MaxSizeGB)
	}
	return nil
}

// ValidateImageName allows plain file names made of letters, digits, '.', '_' and '-'
// that do not start with '.' or '-'.
func ValidateImageName(name string) error {
	if !imageNameRegex.MatchString(name) {
		return fmt.Errorf("image name (%s) must match %s", name, imageNameRegex.String())
	}
	return nil
}
