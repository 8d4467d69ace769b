// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package testutils

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"testing"
)

// GetImageFileType sniffs the format of a disk image or compressed file.
func GetImageFileType(filePath string) (string, error) {
	file, err := os.OpenFile(filePath, os.O_RDONLY, 0)
	if err != nil {
		return "", err
	}
	defer file.Close()

	firstBytes := make([]byte, 512)
	firstBytesCount, err := file.Read(firstBytes)
	if err != nil {
		return "", err
	}

	switch {
	case firstBytesCount >= 4 && bytes.Equal(firstBytes[:4], []byte{'Q', 'F', 'I', 0xfb}):
		return "qcow2", nil

	case firstBytesCount >= 2 && bytes.Equal(firstBytes[:2], []byte{0x1f, 0x8b}):
		return "gzip", nil

	case firstBytesCount >= 6 && bytes.Equal(firstBytes[:6], []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}):
		return "xz", nil

	case isZstFile(firstBytes[:firstBytesCount]):
		return "zst", nil

	case firstBytesCount >= 262 && bytes.Equal(firstBytes[257:262], []byte("ustar")):
		return "tar", nil

	default:
		return "raw", nil
	}
}

func isZstFile(firstBytes []byte) bool {
	if len(firstBytes) < 4 {
		return false
	}

	magicNumber := binary.LittleEndian.Uint32(firstBytes[:4])

	// 0xFD2FB528 is a zst frame.
	// 0x184D2A50-0x184D2A5F are skippable ztd frames.
	return magicNumber == 0xFD2FB528 || (magicNumber >= 0x184D2A50 && magicNumber <= 0x184D2A5F)
}

// CheckSkipForConversionRequirements skips tests that need the real host tooling.
func CheckSkipForConversionRequirements(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("Test must be run as root because it binds loop devices")
	}

	CheckSkipForQemuImg(t)
}

func CheckSkipForQemuImg(t *testing.T) {
	_, err := exec.LookPath("qemu-img")
	if err != nil {
		t.Skip("The 'qemu-img' command is not available")
	}
}

// CreateQcow2Image creates an empty qcow2 image with the given virtual size.
func CreateQcow2Image(t *testing.T, path string, sizeBytes int64) {
	t.Helper()

	output, err := exec.Command("qemu-img", "create", "-f", "qcow2", path, fmt.Sprintf("%d", sizeBytes)).CombinedOutput()
	if err != nil {
		t.Fatalf("failed to create qcow2 image (%s):\n%v\n%s", path, err, output)
	}
}
