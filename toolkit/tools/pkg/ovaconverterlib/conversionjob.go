// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterlib

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/file"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/hostlock"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/remotefile"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/ovaconverterapi"
)

// ConversionJob is one fully resolved conversion. It is not modified after NewConversionJob
// returns.
type ConversionJob struct {
	Source       string
	SizeGB       uint
	Name         string
	Distribution ovaconverterapi.DistributionType
	Credentials  ovaconverterapi.Credentials
	ScratchDir   string
	OutputDir    string
	HostLockFile string
	Requirements HostRequirements

	// File name of the staged source, e.g. "rhcos.qcow2.gz".
	SourceFileName string
	// File name of the raw volume inside the package, e.g. "rhcos".
	VolumeName string
}

// NewConversionJob merges options over config and validates the result. Nothing on disk
// is created.
func NewConversionJob(config *ovaconverterapi.Config, options ConvertOptions) (*ConversionJob, error) {
	err := options.IsValid()
	if err != nil {
		return nil, fmt.Errorf("%w:\n%w", ErrInvalidJob, err)
	}

	merged := options.mergeConfig(config)
	err = merged.IsValid()
	if err != nil {
		return nil, fmt.Errorf("%w:\n%w", ErrInvalidJob, err)
	}

	job := &ConversionJob{
		Source:       merged.Input.Source,
		SizeGB:       merged.Output.SizeGB,
		Name:         merged.Output.Name,
		Distribution: merged.Distribution,
		Credentials:  merged.Credentials,
		HostLockFile: valueOrDefault(options.HostLockFile, hostlock.DefaultLockFile),
		Requirements: DefaultHostRequirements(),
	}

	err = job.validateRequiredFields()
	if err != nil {
		return nil, fmt.Errorf("%w:\n%w", ErrInvalidJob, err)
	}

	job.ScratchDir, err = resolveDir(valueOrDefault(options.TempDir, os.TempDir()))
	if err != nil {
		return nil, fmt.Errorf("%w:\n%w:\n%w", ErrInvalidJob, ErrScratchDirNotFound, err)
	}

	outputDir := merged.Output.Directory
	if outputDir == "" {
		outputDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("%w:\nfailed to get working directory:\n%w", ErrInvalidJob, err)
		}
	}
	job.OutputDir, err = resolveDir(outputDir)
	if err != nil {
		return nil, fmt.Errorf("%w:\ninvalid output directory:\n%w", ErrInvalidJob, err)
	}

	job.SourceFileName, err = sourceFileName(job.Source)
	if err != nil {
		return nil, fmt.Errorf("%w:\n%w", ErrInvalidJob, err)
	}

	job.VolumeName, err = volumeName(job.SourceFileName)
	if err != nil {
		return nil, fmt.Errorf("%w:\n%w", ErrInvalidJob, err)
	}

	if job.VolumeName == job.MetaFileName() || job.VolumeName == job.OvfFileName() {
		return nil, fmt.Errorf("%w:\n%w: volume (%s) collides with a descriptor file name", ErrInvalidJob,
			ErrInvalidVolumeName, job.VolumeName)
	}

	exists, err := file.PathExists(job.ArtifactPath())
	if err != nil {
		return nil, fmt.Errorf("%w:\n%w", ErrInvalidJob, err)
	}
	if exists {
		return nil, fmt.Errorf("%w:\n%w (%s)", ErrInvalidJob, ErrArtifactExists, job.ArtifactPath())
	}

	return job, nil
}

func (j *ConversionJob) validateRequiredFields() error {
	if j.Source == "" {
		return ErrSourceRequired
	}

	if j.Name == "" {
		return ErrNameRequired
	}

	if j.SizeGB == 0 {
		return ErrSizeRequired
	}

	if j.Distribution == ovaconverterapi.DistributionTypeNone {
		return ErrDistributionRequired
	}

	if j.Distribution.RequiresSubscription() &&
		(j.Credentials.SubscriptionUsername == "" || j.Credentials.SubscriptionPassword == "") {
		return ErrSubscriptionCredentialsRequired
	}

	if j.Distribution.RequiresCustomization() && j.Credentials.RootPassword == "" {
		return ErrRootPasswordRequired
	}

	return nil
}

func (j *ConversionJob) MetaFileName() string {
	return j.Name + ".meta"
}

func (j *ConversionJob) OvfFileName() string {
	return j.Name + ".ovf"
}

func (j *ConversionJob) OvaFileName() string {
	return j.Name + ".ova"
}

func (j *ConversionJob) ArtifactFileName() string {
	return j.Name + ".ova.gz"
}

// ArtifactPath is where the finished package is published.
func (j *ConversionJob) ArtifactPath() string {
	return filepath.Join(j.OutputDir, j.ArtifactFileName())
}

func resolveDir(dir string) (string, error) {
	dirAbs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	exists, err := file.DirExists(dirAbs)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("directory (%s) does not exist", dirAbs)
	}

	return dirAbs, nil
}

// sourceFileName returns the last path element of a URL or local path.
func sourceFileName(source string) (string, error) {
	name := filepath.Base(source)
	if remotefile.IsRemote(source) {
		parsed, err := url.Parse(source)
		if err != nil {
			return "", fmt.Errorf("invalid source URL (%s):\n%w", source, err)
		}
		name = path.Base(parsed.Path)
	}

	if name == "" || name == "." || name == ".." || name == "/" || strings.ContainsRune(name, '/') {
		return "", fmt.Errorf("%w: source (%s) does not name a file", ErrInvalidVolumeName, source)
	}

	return name, nil
}

// volumeName strips up to two extensions: "rhcos.qcow2.gz" becomes "rhcos".
func volumeName(sourceFileName string) (string, error) {
	name := sourceFileName
	for range 2 {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}

	if name == "" {
		return "", fmt.Errorf("%w: (%s)", ErrInvalidVolumeName, sourceFileName)
	}

	err := ovaconverterapi.ValidateImageName(name)
	if err != nil {
		return "", fmt.Errorf("%w:\n%w", ErrInvalidVolumeName, err)
	}

	return name, nil
}
