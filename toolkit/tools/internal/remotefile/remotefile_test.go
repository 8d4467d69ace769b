// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package remotefile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitStderrLog()
	os.Exit(m.Run())
}

func fastDownloader() *Downloader {
	return NewDownloader(WithRetryMax(3), WithRetryWait(time.Millisecond, 5*time.Millisecond))
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("http://example.com/rhcos.qcow2.gz"))
	assert.True(t, IsRemote("https://example.com/rhel.qcow2"))
	assert.False(t, IsRemote("/tmp/rhel.qcow2"))
	assert.False(t, IsRemote("ftp://example.com/rhel.qcow2"))
	assert.False(t, IsRemote("file:///tmp/rhel.qcow2"))
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("qcow2 bytes"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "rhel.qcow2")
	written, err := fastDownloader().Download(context.Background(), server.URL+"/rhel.qcow2", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len("qcow2 bytes")), written)

	contents, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "qcow2 bytes", string(contents))
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "rhel.qcow2")
	_, err := fastDownloader().Download(context.Background(), server.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDownloadNotFound(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "rhel.qcow2")
	_, err := fastDownloader().Download(context.Background(), server.URL, dest)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, int32(1), attempts.Load())
	assert.NoFileExists(t, dest)
}

func TestDownloadCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fastDownloader().Download(ctx, server.URL, filepath.Join(t.TempDir(), "x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDownloadRejectsLocalPath(t *testing.T) {
	_, err := fastDownloader().Download(context.Background(), "/tmp/rhel.qcow2", filepath.Join(t.TempDir(), "x"))
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}
