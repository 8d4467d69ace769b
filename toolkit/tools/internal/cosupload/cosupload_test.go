// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package cosupload

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	bucket string
	key    string
	body   []byte
	err    error
}

func (f *fakeUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}

	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}

	f.bucket = aws.ToString(input.Bucket)
	f.key = aws.ToString(input.Key)
	f.body = body
	return &manager.UploadOutput{Location: "https://cos.example/" + f.bucket + "/" + f.key}, nil
}

func TestMain(m *testing.M) {
	logger.InitStderrLog()
	os.Exit(m.Run())
}

func TestEndpointForRegion(t *testing.T) {
	assert.Equal(t, "https://s3.us-south.cloud-object-storage.appdomain.cloud", EndpointForRegion("us-south"))
}

func TestTargetEndpointOverride(t *testing.T) {
	target := Target{Region: "eu-de", Endpoint: "http://localhost:9000"}
	assert.Equal(t, "http://localhost:9000", target.endpoint())

	target.Endpoint = ""
	assert.Equal(t, EndpointForRegion("eu-de"), target.endpoint())
}

func TestTargetIsValid(t *testing.T) {
	valid := Target{Bucket: "images", Region: "us-south", AccessKey: "a", SecretKey: "s"}
	assert.NoError(t, valid.IsValid())

	noBucket := valid
	noBucket.Bucket = ""
	assert.ErrorIs(t, noBucket.IsValid(), ErrInvalidTarget)

	noLocation := valid
	noLocation.Region = ""
	assert.ErrorIs(t, noLocation.IsValid(), ErrInvalidTarget)

	noSecret := valid
	noSecret.SecretKey = ""
	assert.ErrorIs(t, noSecret.IsValid(), ErrInvalidTarget)
}

func TestUploadFileDefaultsObjectKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.ova.gz")
	require.NoError(t, os.WriteFile(path, []byte("gz"), 0o644))

	uploader := &fakeUploader{}
	location, err := newClientWithUploader(uploader).UploadFile(context.Background(), "images", path, "")
	require.NoError(t, err)

	assert.Equal(t, "images", uploader.bucket)
	assert.Equal(t, "demo.ova.gz", uploader.key)
	assert.Equal(t, []byte("gz"), uploader.body)
	assert.Equal(t, "https://cos.example/images/demo.ova.gz", location)
}

func TestUploadFileExplicitKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.ova.gz")
	require.NoError(t, os.WriteFile(path, []byte("gz"), 0o644))

	uploader := &fakeUploader{}
	_, err := newClientWithUploader(uploader).UploadFile(context.Background(), "images", path, "rhel/demo.ova.gz")
	require.NoError(t, err)
	assert.Equal(t, "rhel/demo.ova.gz", uploader.key)
}

func TestUploadFileFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.ova.gz")
	require.NoError(t, os.WriteFile(path, []byte("gz"), 0o644))

	uploadErr := errors.New("access denied")
	_, err := newClientWithUploader(&fakeUploader{err: uploadErr}).UploadFile(context.Background(), "images", path, "")
	assert.ErrorIs(t, err, uploadErr)
}

func TestUploadFileMissing(t *testing.T) {
	_, err := newClientWithUploader(&fakeUploader{}).UploadFile(context.Background(), "images", "/nonexistent/demo.ova.gz", "")
	assert.ErrorContains(t, err, "failed to open")
}

func TestNewClientRejectsInvalidTarget(t *testing.T) {
	_, err := NewClient(context.Background(), Target{})
	assert.ErrorIs(t, err, ErrInvalidTarget)
}
