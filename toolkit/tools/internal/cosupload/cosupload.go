// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package cosupload pushes finished artifacts to an S3-compatible object store
// (IBM Cloud Object Storage by default).
package cosupload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
)

var ErrInvalidTarget = errors.New("invalid upload target")

// S3Uploader is the part of manager.Uploader used here.
type S3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type Target struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type Client struct {
	uploader S3Uploader
}

// EndpointForRegion returns the public IBM COS endpoint of region.
func EndpointForRegion(region string) string {
	return fmt.Sprintf("https://s3.%s.cloud-object-storage.appdomain.cloud", region)
}

func (t Target) IsValid() error {
	if t.Bucket == "" {
		return fmt.Errorf("%w: bucket must be set", ErrInvalidTarget)
	}
	if t.Region == "" && t.Endpoint == "" {
		return fmt.Errorf("%w: either region or endpoint must be set", ErrInvalidTarget)
	}
	if t.AccessKey == "" || t.SecretKey == "" {
		return fmt.Errorf("%w: access key and secret key must be set", ErrInvalidTarget)
	}
	return nil
}

func (t Target) endpoint() string {
	if t.Endpoint != "" {
		return t.Endpoint
	}
	return EndpointForRegion(t.Region)
}

// NewClient builds an S3 client with static credentials and path-style addressing
// against the target's endpoint.
func NewClient(ctx context.Context, target Target) (*Client, error) {
	err := target.IsValid()
	if err != nil {
		return nil, err
	}

	region := target.Region
	if region == "" {
		// The SDK insists on a region for signing; COS ignores it when an endpoint is given.
		region = "us-east-1"
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(target.AccessKey, target.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load object storage config:\n%w", err)
	}

	endpoint := target.endpoint()
	s3Client := s3.NewFromConfig(cfg, func(options *s3.Options) {
		options.BaseEndpoint = aws.String(endpoint)
		options.UsePathStyle = true
	})

	logger.Log.Debugf("Using object storage endpoint (%s)", endpoint)

	return newClientWithUploader(manager.NewUploader(s3Client)), nil
}

func newClientWithUploader(uploader S3Uploader) *Client {
	return &Client{uploader: uploader}
}

// UploadFile uploads filePath to bucket under objectKey. An empty objectKey uses the
// file's base name. The returned string is the object location reported by the store.
func (c *Client) UploadFile(ctx context.Context, bucket string, filePath string, objectKey string) (string, error) {
	if objectKey == "" {
		objectKey = filepath.Base(filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open (%s) for upload:\n%w", filePath, err)
	}
	defer func() {
		closeErr := file.Close()
		if closeErr != nil {
			logger.Log.Warnf("Failed to close uploaded file (%s): %v", filePath, closeErr)
		}
	}()

	logger.Log.Infof("Uploading (%s) to bucket (%s) as (%s)", filePath, bucket, objectKey)

	output, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectKey),
		Body:   file,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload (%s) to bucket (%s):\n%w", filePath, bucket, err)
	}

	logger.Log.Infof("Uploaded (%s)", output.Location)
	return output.Location, nil
}
