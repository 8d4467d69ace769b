// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterapi

import (
	"fmt"
)

// Config is the YAML manifest of a conversion. Every field is optional here since the
// command line can supply or override each of them.
type Config struct {
	Input        Input            `yaml:"input" json:"input,omitempty"`
	Output       Output           `yaml:"output" json:"output,omitempty"`
	Distribution DistributionType `yaml:"distribution" json:"distribution,omitempty"`
	Credentials  Credentials      `yaml:"credentials" json:"credentials,omitempty"`
}

func (c *Config) IsValid() error {
	err := c.Input.IsValid()
	if err != nil {
		return fmt.Errorf("invalid 'input' field:\n%w", err)
	}

	err = c.Output.IsValid()
	if err != nil {
		return fmt.Errorf("invalid 'output' field:\n%w", err)
	}

	err = c.Distribution.IsValid()
	if err != nil {
		return fmt.Errorf("invalid 'distribution' field:\n%w", err)
	}

	err = c.Credentials.IsValid()
	if err != nil {
		return fmt.Errorf("invalid 'credentials' field:\n%w", err)
	}

	return nil
}
