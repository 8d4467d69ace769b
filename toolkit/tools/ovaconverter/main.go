// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Tool to convert qcow2 cloud images into PowerVS OVA packages

package main

import (
	"context"
	"fmt"
	"log"
	"maps"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/cosupload"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/exekong"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/telemetry"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/ovaconverterapi"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/pkg/ovaconverterlib"
)

type ConvertCmd struct {
	ImageUrl     string `name:"image-url" short:"u" help:"URL or local path of the qcow2 image. Compressed images (.gz, .xz, .zst) are extracted."`
	ImageSize    uint   `name:"image-size" short:"s" help:"Size in GiB of the resulting volume." default:"0"`
	ImageName    string `name:"image-name" short:"n" help:"Name of the resulting image."`
	ImageDist    string `name:"image-dist" short:"d" placeholder:"(coreos|rhel|centos)" help:"Distribution of the image." enum:"${distributions}" default:""`
	RhnUser      string `name:"rhn-user" short:"U" help:"Red Hat subscription user name. Required for rhel." env:"OVA_RHN_USER"`
	RhnPassword  string `name:"rhn-password" short:"P" help:"Red Hat subscription password. Required for rhel." env:"OVA_RHN_PASSWORD"`
	OsPassword   string `name:"os-password" short:"O" help:"Root password of the guest. Required for rhel and centos." env:"OVA_OS_PASSWORD"`
	TempDir      string `name:"temp-dir" short:"T" help:"Scratch directory for the conversion workspace. Defaults to the system temp directory."`
	OutputDir    string `name:"output-dir" help:"Directory the package is published to. Defaults to the working directory."`
	ConfigFile   string `name:"config-file" help:"Path of a YAML conversion manifest. Command line values take precedence."`
	HostLockFile string `name:"host-lock-file" help:"Lock file serializing guest customization on this host."`
	NoTelemetry  bool   `name:"disable-telemetry" help:"Disable trace collection."`
}

type UploadCmd struct {
	Bucket    string `name:"bucket" short:"b" help:"Cloud Object Storage bucket." required:""`
	Region    string `name:"region" short:"r" help:"Region of the bucket (e.g. us-south)." required:""`
	File      string `name:"file" short:"f" help:"Package to upload." type:"existingfile" required:""`
	Object    string `name:"object" short:"o" help:"Object key. Defaults to the file name."`
	AccessKey string `name:"accesskey" short:"a" help:"HMAC access key of the bucket." env:"OVA_COS_ACCESS_KEY"`
	Secret    string `name:"secret" short:"s" help:"HMAC secret key of the bucket." env:"OVA_COS_SECRET_KEY"`
	Endpoint  string `name:"endpoint" help:"Override the Cloud Object Storage endpoint of the region."`
}

type RootCmd struct {
	Convert ConvertCmd       `name:"convert" cmd:"" default:"withargs" help:"Convert a qcow2 image into an OVA package."`
	Upload  UploadCmd        `name:"upload" cmd:"" help:"Upload an OVA package to Cloud Object Storage."`
	Version kong.VersionFlag `name:"version" help:"Print version and exit."`
	exekong.LogFlags
}

func main() {
	cli := &RootCmd{}

	vars := kong.Vars{
		"distributions": strings.Join(ovaconverterapi.SupportedDistributionTypes(), ",") + ",",
		"version":       ovaconverterlib.ToolVersion,
	}
	maps.Copy(vars, exekong.KongVars)

	parseContext := kong.Parse(cli,
		vars,
		kong.HelpOptions{
			Compact:   true,
			FlagsLast: true,
		},
		kong.UsageOnError())

	logFlags := cli.LogFlags.AsLoggerFlags()
	logger.InitBestEffort(&logFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch parseContext.Command() {
	case "upload":
		err = uploadPackage(ctx, &cli.Upload)
		if err != nil {
			log.Fatalf("upload failed:\n%v", err)
		}

	default:
		err = convertImage(ctx, &cli.Convert)
		if err != nil {
			log.Fatalf("conversion failed:\n%v", err)
		}
	}
}

func convertImage(ctx context.Context, cmd *ConvertCmd) error {
	err := telemetry.InitTelemetry(cmd.NoTelemetry, ovaconverterlib.ToolVersion)
	if err != nil {
		logger.Log.Warnf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		// ctx may already be cancelled.
		shutdownErr := telemetry.ShutdownTelemetry(context.Background())
		if shutdownErr != nil {
			logger.Log.Warnf("Failed to shut down telemetry: %v", shutdownErr)
		}
	}()

	options := ovaconverterlib.ConvertOptions{
		Source:               cmd.ImageUrl,
		SizeGB:               cmd.ImageSize,
		Name:                 cmd.ImageName,
		Distribution:         ovaconverterapi.DistributionType(cmd.ImageDist),
		SubscriptionUsername: cmd.RhnUser,
		SubscriptionPassword: cmd.RhnPassword,
		RootPassword:         cmd.OsPassword,
		TempDir:              cmd.TempDir,
		OutputDir:            cmd.OutputDir,
		HostLockFile:         cmd.HostLockFile,
	}

	result, err := ovaconverterlib.ConvertWithConfigFile(ctx, cmd.ConfigFile, options)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s (%d byte volume)\n", color.GreenString("Created"), result.ArtifactPath,
		result.VolumeSizeBytes)
	return nil
}

func uploadPackage(ctx context.Context, cmd *UploadCmd) error {
	target := cosupload.Target{
		Bucket:    cmd.Bucket,
		Region:    cmd.Region,
		Endpoint:  cmd.Endpoint,
		AccessKey: cmd.AccessKey,
		SecretKey: cmd.Secret,
	}

	client, err := cosupload.NewClient(ctx, target)
	if err != nil {
		return err
	}

	location, err := client.UploadFile(ctx, target.Bucket, cmd.File, cmd.Object)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", color.GreenString("Uploaded"), location)
	return nil
}
