// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterapi

import (
	"fmt"
	"strings"
)

type Credentials struct {
	SubscriptionUsername string `yaml:"subscriptionUsername" json:"subscriptionUsername,omitempty"`
	SubscriptionPassword string `yaml:"subscriptionPassword" json:"subscriptionPassword,omitempty"`
	RootPassword         string `yaml:"rootPassword" json:"rootPassword,omitempty"`
}

func (c Credentials) IsValid() error {
	fields := []struct {
		name  string
		value string
	}{
		{"subscriptionUsername", c.SubscriptionUsername},
		{"subscriptionPassword", c.SubscriptionPassword},
		{"rootPassword", c.RootPassword},
	}

	for _, field := range fields {
		err := ValidateCredentialValue(field.value)
		if err != nil {
			// Never echo the value.
			return fmt.Errorf("invalid '%s' field:\n%w", field.name, err)
		}
	}

	return nil
}

// ValidateCredentialValue rejects values that cannot be passed through a single line of
// a shell script.
func ValidateCredentialValue(value string) error {
	if strings.ContainsAny(value, "\x00\n\r") {
		return fmt.Errorf("value must not contain NUL or line break characters")
	}
	return nil
}
