// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterlib

var (
	// Preflight
	ErrUnsupportedHost   = NewOvaConverterError("Preflight:UnsupportedHost", "host operating system is not supported")
	ErrUnsupportedArch   = NewOvaConverterError("Preflight:UnsupportedArch", "host architecture is not supported")
	ErrMissingDependency = NewOvaConverterError("Preflight:MissingDependency", "required tool is missing")
	ErrToolMustRunAsRoot = NewOvaConverterError("Preflight:ToolMustRunAsRoot", "tool should be run as root (e.g. by using sudo)")
	ErrInsufficientSpace = NewOvaConverterError("Preflight:InsufficientSpace", "not enough free space in the scratch directory")
	ErrHostProbe         = NewOvaConverterError("Preflight:HostProbe", "failed to inspect host")

	// Validation
	ErrInvalidJob                      = NewOvaConverterError("Validation:InvalidJob", "invalid conversion job")
	ErrInvalidManifest                 = NewOvaConverterError("Validation:InvalidManifest", "invalid manifest file")
	ErrSourceRequired                  = NewOvaConverterError("Validation:SourceRequired", "image source must be specified, either via '--image-url' or 'input.source'")
	ErrNameRequired                    = NewOvaConverterError("Validation:NameRequired", "image name must be specified, either via '--image-name' or 'output.name'")
	ErrSizeRequired                    = NewOvaConverterError("Validation:SizeRequired", "image size must be greater than zero, set via '--image-size' or 'output.sizeGB'")
	ErrDistributionRequired            = NewOvaConverterError("Validation:DistributionRequired", "image distribution must be specified, either via '--image-dist' or 'distribution'")
	ErrSubscriptionCredentialsRequired = NewOvaConverterError("Validation:SubscriptionCredentialsRequired", "subscription username and password are required for the rhel distribution")
	ErrRootPasswordRequired            = NewOvaConverterError("Validation:RootPasswordRequired", "root password is required for the rhel and centos distributions")
	ErrInvalidVolumeName               = NewOvaConverterError("Validation:InvalidVolumeName", "cannot derive a volume name from the image source")
	ErrScratchDirNotFound              = NewOvaConverterError("Validation:ScratchDirNotFound", "scratch directory does not exist")
	ErrArtifactExists                  = NewOvaConverterError("Validation:ArtifactExists", "output artifact already exists")

	// Pipeline
	ErrCancelled = NewOvaConverterError("Pipeline:Cancelled", "conversion was cancelled")
	ErrWorkspace = NewOvaConverterError("Pipeline:Workspace", "failed to prepare workspace")

	// Source
	ErrFetch      = NewOvaConverterError("Source:Fetch", "failed to fetch source image")
	ErrDecompress = NewOvaConverterError("Source:Decompress", "failed to decompress source image")

	// Image tools
	ErrConversionTool = NewOvaConverterError("Image:ConversionTool", "failed to convert qcow2 image to raw")
	ErrResizeTool     = NewOvaConverterError("Image:ResizeTool", "failed to resize raw volume")

	// Guest
	ErrHostLock       = NewOvaConverterError("Guest:HostLock", "failed to acquire host lock")
	ErrLoopDevice     = NewOvaConverterError("Guest:LoopDevice", "failed to bind loop device")
	ErrPartitionProbe = NewOvaConverterError("Guest:PartitionProbe", "failed to probe guest partitions")
	ErrMount          = NewOvaConverterError("Guest:Mount", "failed to mount guest filesystem")
	ErrCustomization  = NewOvaConverterError("Guest:Customization", "guest customization failed")
	ErrRootRestore    = NewOvaConverterError("Guest:RootRestore", "failed to restore original root after customization")

	// Output
	ErrDescriptors = NewOvaConverterError("Output:Descriptors", "failed to write image descriptors")
	ErrPackaging   = NewOvaConverterError("Output:Packaging", "failed to create ova archive")
	ErrCompression = NewOvaConverterError("Output:Compression", "failed to compress ova archive")
	ErrPublish     = NewOvaConverterError("Output:Publish", "failed to move artifact to output directory")
)
