// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package compression

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/shell"
	"github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"
)

const (
	pigzBinary = "pigz"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported compression format")
	ErrInvalidGzip       = errors.New("invalid gzip stream")
)

type Format string

const (
	FormatGzip Format = "gz"
	FormatXz   Format = "xz"
	FormatZstd Format = "zst"
)

// FormatFromFileName maps a compressed file suffix to its format.
// The second return value is false for files that are not compressed.
func FormatFromFileName(fileName string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".gz":
		return FormatGzip, true
	case ".xz":
		return FormatXz, true
	case ".zst":
		return FormatZstd, true
	default:
		return "", false
	}
}

// Decompress expands sourcePath into destinationPath.
func Decompress(format Format, sourcePath string, destinationPath string) error {
	logger.Log.Debugf("Decompressing (%s) to (%s)", sourcePath, destinationPath)

	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open (%s):\n%w", sourcePath, err)
	}
	defer sourceFile.Close()

	var reader io.Reader
	switch format {
	case FormatGzip:
		gzipReader, err := pgzip.NewReader(sourceFile)
		if err != nil {
			return fmt.Errorf("failed to read gzip header of (%s):\n%w", sourcePath, err)
		}
		defer gzipReader.Close()
		reader = gzipReader

	case FormatXz:
		xzReader, err := xz.NewReader(sourceFile)
		if err != nil {
			return fmt.Errorf("failed to read xz header of (%s):\n%w", sourcePath, err)
		}
		reader = xzReader

	case FormatZstd:
		zstdReader, err := zstd.NewReader(sourceFile)
		if err != nil {
			return fmt.Errorf("failed to read zstd header of (%s):\n%w", sourcePath, err)
		}
		defer zstdReader.Close()
		reader = zstdReader

	default:
		return fmt.Errorf("%w (%s)", ErrUnsupportedFormat, format)
	}

	return writeStream(reader, destinationPath)
}

// GzipFile compresses sourcePath into destinationPath. pigz is used when it is on PATH,
// otherwise the built-in parallel encoder. Either way the result is one gzip member.
func GzipFile(executor shell.Executor, sourcePath string, destinationPath string) error {
	pigzPath, err := exec.LookPath(pigzBinary)
	if err == nil {
		logger.Log.Infof("Compressing with (%s)", pigzPath)
		err = gzipWithPigz(executor, pigzPath, sourcePath, destinationPath)
	} else {
		logger.Log.Infof("Compressing with built-in gzip encoder")
		err = gzipBuiltIn(sourcePath, destinationPath)
	}
	if err != nil {
		return err
	}

	return VerifyGzip(destinationPath)
}

func gzipWithPigz(executor shell.Executor, pigzPath string, sourcePath string, destinationPath string) error {
	destinationFile, err := os.Create(destinationPath)
	if err != nil {
		return fmt.Errorf("failed to create (%s):\n%w", destinationPath, err)
	}
	defer destinationFile.Close()

	err = shell.NewExecBuilder(executor, pigzPath, "-c", sourcePath).
		Stdout(destinationFile).
		LogLevel(logrus.DebugLevel, logrus.WarnLevel).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to compress (%s):\n%w", sourcePath, err)
	}

	err = destinationFile.Close()
	if err != nil {
		return fmt.Errorf("failed to finalize (%s):\n%w", destinationPath, err)
	}

	return nil
}

func gzipBuiltIn(sourcePath string, destinationPath string) error {
	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open (%s):\n%w", sourcePath, err)
	}
	defer sourceFile.Close()

	destinationFile, err := os.Create(destinationPath)
	if err != nil {
		return fmt.Errorf("failed to create (%s):\n%w", destinationPath, err)
	}
	defer destinationFile.Close()

	gzipWriter := pgzip.NewWriter(destinationFile)
	gzipWriter.Name = filepath.Base(sourcePath)

	_, err = io.Copy(gzipWriter, sourceFile)
	if err != nil {
		gzipWriter.Close()
		return fmt.Errorf("failed to compress (%s):\n%w", sourcePath, err)
	}

	err = gzipWriter.Close()
	if err != nil {
		return fmt.Errorf("failed to finish gzip stream (%s):\n%w", destinationPath, err)
	}

	err = destinationFile.Close()
	if err != nil {
		return fmt.Errorf("failed to finalize (%s):\n%w", destinationPath, err)
	}

	return nil
}

// VerifyGzip checks that path holds exactly one complete gzip member.
func VerifyGzip(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w (%s):\n%w", ErrInvalidGzip, path, err)
	}
	defer file.Close()

	buffered := bufio.NewReader(file)
	reader, err := gzip.NewReader(buffered)
	if err != nil {
		return fmt.Errorf("%w (%s):\n%w", ErrInvalidGzip, path, err)
	}
	defer reader.Close()

	reader.Multistream(false)

	_, err = io.Copy(io.Discard, reader)
	if err != nil {
		return fmt.Errorf("%w (%s):\n%w", ErrInvalidGzip, path, err)
	}

	trailing, err := io.Copy(io.Discard, buffered)
	if err != nil {
		return fmt.Errorf("%w (%s):\n%w", ErrInvalidGzip, path, err)
	}
	if trailing > 0 {
		return fmt.Errorf("%w (%s): (%d) bytes after the first gzip member", ErrInvalidGzip, path, trailing)
	}

	return nil
}

func writeStream(reader io.Reader, destinationPath string) error {
	destinationFile, err := os.Create(destinationPath)
	if err != nil {
		return fmt.Errorf("failed to create (%s):\n%w", destinationPath, err)
	}
	defer destinationFile.Close()

	_, err = io.Copy(destinationFile, reader)
	if err != nil {
		return fmt.Errorf("failed to decompress into (%s):\n%w", destinationPath, err)
	}

	err = destinationFile.Close()
	if err != nil {
		return fmt.Errorf("failed to finalize (%s):\n%w", destinationPath, err)
	}

	return nil
}
