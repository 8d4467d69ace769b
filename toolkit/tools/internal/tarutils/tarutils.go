// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package tarutils

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
)

var ErrInvalidEntryName = errors.New("invalid archive entry name")

// CreateTarArchive writes an uncompressed tar to outputArchivePath holding the regular
// files baseDir/<entry> for each entry, stored under their plain names. The process
// working directory is never changed.
func CreateTarArchive(outputArchivePath string, baseDir string, entries []string) error {
	logger.Log.Infof("Creating archive (%s) from (%s)", outputArchivePath, baseDir)

	for _, entry := range entries {
		err := checkEntryName(entry)
		if err != nil {
			return err
		}
	}

	outFile, err := os.Create(outputArchivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive (%s):\n%w", outputArchivePath, err)
	}
	defer outFile.Close()

	tw := tar.NewWriter(outFile)

	for _, entry := range entries {
		err = addFile(tw, filepath.Join(baseDir, entry), entry)
		if err != nil {
			return fmt.Errorf("failed to add (%s) to archive (%s):\n%w", entry, outputArchivePath, err)
		}
	}

	err = tw.Close()
	if err != nil {
		return fmt.Errorf("failed to finish archive (%s):\n%w", outputArchivePath, err)
	}

	err = outFile.Close()
	if err != nil {
		return fmt.Errorf("failed to finalize archive (%s):\n%w", outputArchivePath, err)
	}

	return nil
}

func addFile(tw *tar.Writer, path string, name string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("(%s) is not a regular file", path)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = name
	header.Uname = ""
	header.Gname = ""

	err = tw.WriteHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(tw, file)
	return err
}

// checkEntryName accepts only plain file names so no entry can point outside the archive root.
func checkEntryName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w (%s)", ErrInvalidEntryName, name)
	}
	return nil
}

// ExpandTarArchive extracts the regular files of an uncompressed tar into outputDir.
func ExpandTarArchive(reader io.Reader, outputDir string) ([]string, error) {
	names := []string(nil)

	tr := tar.NewReader(reader)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read header from archive:\n%w", err)
		}

		// Ensure the name is not a directory traversal element (e.g. '..') or
		// an absolute path.
		cleanName := filepath.Clean(header.Name)
		if strings.Contains(cleanName, "..") || filepath.IsAbs(cleanName) {
			return nil, fmt.Errorf("unallowed file reference in archive. (%s) may reference a file outside the expansion root (%s)", header.Name, outputDir)
		}

		if header.Typeflag != tar.TypeReg {
			return nil, fmt.Errorf("failed to process unsupported file type in archive (%s): (%v)", header.Name, header.Typeflag)
		}

		target := filepath.Join(outputDir, cleanName)
		err = os.MkdirAll(filepath.Dir(target), 0o755)
		if err != nil {
			return nil, fmt.Errorf("failed to create parent folder for (%s)\n%w", target, err)
		}

		err = writeEntry(tr, target, os.FileMode(header.Mode))
		if err != nil {
			return nil, err
		}

		names = append(names, header.Name)
	}

	return names, nil
}

func writeEntry(reader io.Reader, target string, mode os.FileMode) error {
	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return fmt.Errorf("failed to create (%s):\n%w", target, err)
	}
	defer outFile.Close()

	_, err = io.Copy(outFile, reader)
	if err != nil {
		return fmt.Errorf("failed to copy (%s) from archive:\n%w", target, err)
	}

	return outFile.Close()
}
