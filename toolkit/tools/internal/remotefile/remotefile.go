// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package remotefile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
)

const (
	defaultRetryMax     = 4
	defaultRetryWaitMin = 1 * time.Second
	defaultRetryWaitMax = 30 * time.Second
)

var (
	ErrUnexpectedStatus  = errors.New("unexpected HTTP status")
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)

type Downloader struct {
	client *retryablehttp.Client
}

type DownloaderOption func(*retryablehttp.Client)

func WithRetryMax(retryMax int) DownloaderOption {
	return func(c *retryablehttp.Client) {
		c.RetryMax = retryMax
	}
}

func WithRetryWait(min time.Duration, max time.Duration) DownloaderOption {
	return func(c *retryablehttp.Client) {
		c.RetryWaitMin = min
		c.RetryWaitMax = max
	}
}

func WithHTTPClient(httpClient *http.Client) DownloaderOption {
	return func(c *retryablehttp.Client) {
		c.HTTPClient = httpClient
	}
}

func NewDownloader(options ...DownloaderOption) *Downloader {
	client := retryablehttp.NewClient()
	client.Logger = newLeveledLogger(logger.Log)
	client.RetryMax = defaultRetryMax
	client.RetryWaitMin = defaultRetryWaitMin
	client.RetryWaitMax = defaultRetryWaitMax

	for _, option := range options {
		option(client)
	}

	return &Downloader{client: client}
}

// IsRemote reports whether source is an http or https URL.
func IsRemote(source string) bool {
	parsed, err := url.Parse(source)
	if err != nil {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}

// Download streams sourceUrl into destPath and returns the number of bytes written.
// Requests are retried on connection errors and 5xx responses before any byte reaches
// destPath. A partially written destPath is removed on failure.
func (d *Downloader) Download(ctx context.Context, sourceUrl string, destPath string) (int64, error) {
	if !IsRemote(sourceUrl) {
		return 0, fmt.Errorf("%w (%s)", ErrUnsupportedScheme, sourceUrl)
	}

	logger.Log.Infof("Downloading (%s)", sourceUrl)

	request, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, sourceUrl, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request for (%s):\n%w", sourceUrl, err)
	}

	response, err := d.client.Do(request)
	if err != nil {
		return 0, fmt.Errorf("failed to download (%s):\n%w", sourceUrl, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return 0, fmt.Errorf("%w (%s) for (%s)", ErrUnexpectedStatus, response.Status, sourceUrl)
	}

	written, err := writeBody(response.Body, destPath)
	if err != nil {
		removeErr := os.Remove(destPath)
		if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			logger.Log.Warnf("Failed to remove partial download (%s): %v", destPath, removeErr)
		}
		return 0, fmt.Errorf("failed to write (%s) to (%s):\n%w", sourceUrl, destPath, err)
	}

	logger.Log.Debugf("Downloaded %d bytes to (%s)", written, destPath)
	return written, nil
}

func writeBody(body io.Reader, destPath string) (int64, error) {
	outFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	defer outFile.Close()

	written, err := io.Copy(outFile, body)
	if err != nil {
		return 0, err
	}

	err = outFile.Close()
	if err != nil {
		return 0, err
	}

	return written, nil
}
