// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterlib

import (
	"os"
	"testing"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
)

var testLogHook *logger.MemoryLogHook

func TestMain(m *testing.M) {
	logger.InitStderrLog()

	testLogHook = logger.NewMemoryLogHook()
	logger.Log.Hooks.Add(testLogHook)

	os.Exit(m.Run())
}
