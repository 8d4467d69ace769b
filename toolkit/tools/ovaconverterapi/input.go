// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterapi

import (
	"fmt"
	"strings"

	"github.com/asaskevich/govalidator"
)

type Input struct {
	// A http(s) URL or a local path to a qcow2 image, optionally .gz/.xz/.zst compressed.
	Source string `yaml:"source" json:"source,omitempty"`
}

func (i Input) IsValid() error {
	return ValidateSource(i.Source)
}

// ValidateSource accepts an empty value, a local path, or a http(s) URL.
func ValidateSource(source string) error {
	if source == "" {
		return nil
	}

	if strings.ContainsRune(source, 0) {
		return fmt.Errorf("source contains a NUL character")
	}

	scheme, _, hasScheme := strings.Cut(source, "://")
	if !hasScheme {
		return nil
	}

	switch strings.ToLower(scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("unsupported source URL scheme (%s): only http and https are supported", scheme)
	}

	if !govalidator.IsURL(source) {
		return fmt.Errorf("invalid source URL (%s)", source)
	}

	return nil
}
