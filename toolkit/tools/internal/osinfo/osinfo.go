// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package osinfo

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

const (
	OsReleasePath = "/etc/os-release"

	unknownDistro  = "Unknown Distro"
	unknownVersion = "Unknown Version"
)

type OsRelease struct {
	Name       string
	Version    string
	Id         string
	VersionId  string
	PlatformId string

	// The unparsed file.
	Raw string
}

// ParseOsRelease parses the KEY=value format of os-release(5).
func ParseOsRelease(data []byte) (OsRelease, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		SkipUnrecognizableLines: true,
	}, data)
	if err != nil {
		return OsRelease{}, fmt.Errorf("failed to parse os-release:\n%w", err)
	}

	section := cfg.Section(ini.DefaultSection)
	return OsRelease{
		Name:       section.Key("NAME").String(),
		Version:    section.Key("VERSION").String(),
		Id:         section.Key("ID").String(),
		VersionId:  section.Key("VERSION_ID").String(),
		PlatformId: section.Key("PLATFORM_ID").String(),
		Raw:        string(data),
	}, nil
}

func ReadOsRelease(path string) (OsRelease, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return OsRelease{}, fmt.Errorf("failed to read (%s):\n%w", path, err)
	}

	return ParseOsRelease(data)
}

// MatchesPlatform reports whether the release belongs to platform (e.g. "el8"), either
// through PLATFORM_ID or by the tag appearing anywhere in the file.
func (r OsRelease) MatchesPlatform(platform string) bool {
	if platform == "" {
		return true
	}
	if r.PlatformId == "platform:"+platform {
		return true
	}
	return strings.Contains(r.Raw, platform)
}

// GetDistroAndVersion returns the name and version of the host distribution.
func GetDistroAndVersion() (string, string) {
	release, err := ReadOsRelease(OsReleasePath)
	if err != nil {
		return unknownDistro, unknownVersion
	}

	distro := release.Name
	if distro == "" {
		distro = unknownDistro
	}

	version := release.Version
	if version == "" {
		version = unknownVersion
	}

	return distro, version
}
