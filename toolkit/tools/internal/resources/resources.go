// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package resources

import (
	"embed"
)

const (
	// OVA descriptors
	AssetsOvaMetaTemplateFile     = "assets/ova/volume.meta.tmpl"
	AssetsOvaEnvelopeTemplateFile = "assets/ova/envelope.ovf.tmpl"

	// Guest customization
	AssetsGuestCustomizeScriptFile = "assets/guest/customize.sh.tmpl"
)

//go:embed assets
var ResourcesFS embed.FS
