// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package safeloopback

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrLosetupParse   = errors.New("failed to parse losetup output")
	ErrLoopDeviceLost = errors.New("no loop device is bound to the file")
)

type losetupList struct {
	LoopDevices []losetupDevice `json:"loopdevices"`
}

type losetupDevice struct {
	Name     string `json:"name"`
	BackFile string `json:"back-file"`
}

// parseLosetupList finds the loop device backed by backingFile in the output of
// `losetup --list --json --output NAME,BACK-FILE`.
func parseLosetupList(output string, backingFile string) (string, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		// losetup prints nothing at all when no device is bound.
		return "", fmt.Errorf("%w (%s)", ErrLoopDeviceLost, backingFile)
	}

	var list losetupList
	decoder := json.NewDecoder(strings.NewReader(output))
	decoder.DisallowUnknownFields()
	err := decoder.Decode(&list)
	if err != nil {
		return "", fmt.Errorf("%w:\n%w", ErrLosetupParse, err)
	}

	if list.LoopDevices == nil {
		return "", fmt.Errorf("%w: missing 'loopdevices' list", ErrLosetupParse)
	}

	want := filepath.Clean(backingFile)
	for _, device := range list.LoopDevices {
		if device.Name == "" {
			return "", fmt.Errorf("%w: loop device entry without a name", ErrLosetupParse)
		}

		// The kernel appends " (deleted)" when the backing file was unlinked; such a device
		// cannot be ours.
		if filepath.Clean(device.BackFile) == want {
			return device.Name, nil
		}
	}

	return "", fmt.Errorf("%w (%s)", ErrLoopDeviceLost, backingFile)
}
