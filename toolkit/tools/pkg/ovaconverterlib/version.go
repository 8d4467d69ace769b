// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterlib

// ToolVersion is set at link time.
var ToolVersion = ""
