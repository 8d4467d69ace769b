// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package file

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"golang.org/x/sys/unix"
)

// PathExists reports whether path exists without following a final symlink.
func PathExists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DirExists reports whether path is an existing directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

var ErrDestinationExists = errors.New("destination already exists")

// Copy copies the contents of the regular file src to dst, replacing dst.
func Copy(src string, dst string) error {
	logger.Log.Debugf("Copying (%s) to (%s)", src, dst)
	return copyFile(src, dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY)
}

func copyFile(src string, dst string, dstFlags int) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file:\n%w", err)
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to read source file info:\n%w", err)
	}
	if !srcInfo.Mode().IsRegular() {
		return fmt.Errorf("source (%s) is not a file", src)
	}

	err = os.MkdirAll(filepath.Dir(dst), os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create destination directory (%s):\n%w", filepath.Dir(dst), err)
	}

	dstFile, err := os.OpenFile(dst, dstFlags, srcInfo.Mode().Perm())
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%w (%s)", ErrDestinationExists, dst)
	}
	if err != nil {
		return fmt.Errorf("failed to create destination file:\n%w", err)
	}
	defer dstFile.Close()

	// io.Copy uses copy_file_range/sendfile where it can.
	_, err = io.Copy(dstFile, srcFile)
	if err == nil {
		err = dstFile.Close()
	}
	if err != nil {
		// Never leave a partial file behind.
		removeErr := os.Remove(dst)
		if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			logger.Log.Warnf("Failed to remove partial copy (%s): %v", dst, removeErr)
		}
		return fmt.Errorf("failed to copy file:\n%w", err)
	}

	return nil
}

// MoveNoReplace moves src to dst and fails with ErrDestinationExists when dst is already
// present. The file is hard linked into place, or copied with O_EXCL across filesystems.
// Once dst is in place a failure to remove src is only logged.
func MoveNoReplace(src string, dst string) error {
	err := os.Link(src, dst)
	switch {
	case err == nil:

	case errors.Is(err, os.ErrExist):
		return fmt.Errorf("%w (%s)", ErrDestinationExists, dst)

	case errors.Is(err, unix.EXDEV):
		logger.Log.Debugf("(%s) and (%s) are on different filesystems, copying", src, dst)

		err = copyFile(src, dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY)
		if err != nil {
			return fmt.Errorf("failed to move (%s) to (%s):\n%w", src, dst, err)
		}

	default:
		return fmt.Errorf("failed to move (%s) to (%s):\n%w", src, dst, err)
	}

	err = os.Remove(src)
	if err != nil {
		logger.Log.Warnf("Failed to remove (%s) after moving it to (%s): %v", src, dst, err)
	}

	return nil
}

// RemoveFileIfExists deletes path if it is present.
func RemoveFileIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
