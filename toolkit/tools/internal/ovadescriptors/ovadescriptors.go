// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package ovadescriptors renders the OVA descriptor files and the guest customization
// inputs. Every function is pure: parameters in, text out. Parameter values are only
// ever substituted as data.
package ovadescriptors

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"net"
	"strings"
	"text/template"

	"github.com/alessio/shellescape"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/resources"
)

var ErrInvalidValue = errors.New("invalid descriptor value")

type MetaParams struct {
	ImageName    string
	OsType       string
	Architecture string
}

type OvfParams struct {
	ImageName       string
	VolumeName      string
	VolumeSizeBytes int64
	OsDescription   string
	Architecture    string
}

type ScriptParams struct {
	RequiresSubscription bool
	SubscriptionUsername string
	SubscriptionPassword string
	RootPassword         string
	Nameserver           string
	CloudInitRpmUrl      string
	PowerRepoRpmUrl      string
}

var templateFuncs = template.FuncMap{
	"xml":        xmlEscape,
	"shellquote": shellescape.Quote,
}

// RenderMeta renders the key/value volume metadata file.
func RenderMeta(params MetaParams) (string, error) {
	for name, value := range map[string]string{
		"image name":   params.ImageName,
		"os type":      params.OsType,
		"architecture": params.Architecture,
	} {
		err := checkSingleLine(name, value)
		if err != nil {
			return "", err
		}
	}

	return render(resources.AssetsOvaMetaTemplateFile, params)
}

// RenderOvf renders the OVF envelope. The size attributes carry the exact byte count.
func RenderOvf(params OvfParams) (string, error) {
	if params.VolumeSizeBytes <= 0 {
		return "", fmt.Errorf("%w: volume size (%d) must be positive", ErrInvalidValue, params.VolumeSizeBytes)
	}
	if params.VolumeName == "" || params.ImageName == "" {
		return "", fmt.Errorf("%w: image and volume names are required", ErrInvalidValue)
	}

	return render(resources.AssetsOvaEnvelopeTemplateFile, params)
}

// RenderCustomizationScript renders the bash script executed inside the guest.
func RenderCustomizationScript(params ScriptParams) (string, error) {
	if net.ParseIP(params.Nameserver) == nil {
		return "", fmt.Errorf("%w: nameserver (%s) is not an IP address", ErrInvalidValue, params.Nameserver)
	}

	for name, value := range map[string]string{
		"subscription username": params.SubscriptionUsername,
		"subscription password": params.SubscriptionPassword,
		"root password":         params.RootPassword,
	} {
		if strings.ContainsRune(value, 0) {
			return "", fmt.Errorf("%w: %s contains a NUL character", ErrInvalidValue, name)
		}
	}

	return render(resources.AssetsGuestCustomizeScriptFile, params)
}

func render(templateFile string, params any) (string, error) {
	templateText, err := resources.ResourcesFS.ReadFile(templateFile)
	if err != nil {
		return "", fmt.Errorf("failed to read template (%s):\n%w", templateFile, err)
	}

	tmpl, err := template.New(templateFile).
		Option("missingkey=error").
		Funcs(templateFuncs).
		Parse(string(templateText))
	if err != nil {
		return "", fmt.Errorf("failed to parse template (%s):\n%w", templateFile, err)
	}

	buffer := &bytes.Buffer{}
	err = tmpl.Execute(buffer, params)
	if err != nil {
		return "", fmt.Errorf("failed to render template (%s):\n%w", templateFile, err)
	}

	return buffer.String(), nil
}

func xmlEscape(value string) (string, error) {
	buffer := &bytes.Buffer{}
	err := xml.EscapeText(buffer, []byte(value))
	if err != nil {
		return "", err
	}
	return buffer.String(), nil
}

func checkSingleLine(name string, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidValue, name)
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: %s must not contain line breaks", ErrInvalidValue, name)
	}
	return nil
}
