// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package version

import (
	"fmt"
	"strconv"
	"strings"
)

type Version []int

func (v Version) Cmp(other Version) int {
	count := len(v)
	if len(other) > count {
		count = len(other)
	}

	for i := 0; i < count; i++ {
		c1 := 0
		if i < len(v) {
			c1 = v[i]
		}

		c2 := 0
		if i < len(other) {
			c2 = other[i]
		}

		if c1 > c2 {
			return 1
		} else if c1 < c2 {
			return -1
		}
	}

	return 0
}

func (v Version) Gt(other Version) bool {
	return v.Cmp(other) > 0
}

func (v Version) Ge(other Version) bool {
	return v.Cmp(other) >= 0
}

func (v Version) Lt(other Version) bool {
	return v.Cmp(other) < 0
}

func (v Version) Le(other Version) bool {
	return v.Cmp(other) <= 0
}

func (v Version) Eq(other Version) bool {
	return v.Cmp(other) == 0
}

func (v Version) String() string {
	builder := strings.Builder{}
	for i, p := range v {
		if i != 0 {
			builder.WriteString(".")
		}
		builder.WriteString(fmt.Sprintf("%d", p))
	}
	return builder.String()
}

// Parse reads a dotted numeric version such as "8.10" or "6.2.0".
func Parse(value string) (Version, error) {
	if value == "" {
		return nil, fmt.Errorf("empty version string")
	}

	parts := strings.Split(value, ".")
	result := make(Version, 0, len(parts))
	for _, part := range parts {
		number, err := strconv.Atoi(part)
		if err != nil || number < 0 {
			return nil, fmt.Errorf("invalid version (%s)", value)
		}
		result = append(result, number)
	}

	return result, nil
}

// FindInText returns the first dotted numeric version that follows prefix in text.
// For example, prefix "qemu-img version " in "qemu-img version 6.2.0 (qemu-kvm-6.2.0-11.el8)".
func FindInText(text string, prefix string) (Version, error) {
	_, rest, found := strings.Cut(text, prefix)
	if !found {
		return nil, fmt.Errorf("version prefix (%s) not found", prefix)
	}

	end := strings.IndexFunc(rest, func(r rune) bool {
		return r != '.' && (r < '0' || r > '9')
	})
	if end >= 0 {
		rest = rest[:end]
	}

	return Parse(strings.TrimSuffix(rest, "."))
}
