package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrNotImage is returned when a payload does not sniff as an image.
var ErrNotImage = errors.New("the downloaded file is not a valid image type")

// maxDownloadSize bounds the body read from a single image URL.
const maxDownloadSize = 64 << 20

// Payload is a downloaded image body.
type Payload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Reader returns a fresh reader over the payload bytes.
func (p Payload) Reader() io.Reader {
	return bytes.NewReader(p.Data)
}

// Download fetches the image at rawURL. The deadline comes from ctx and the
// client; the request is never retried. Non-2xx statuses and bodies that do not
// sniff as an image are rejected.
func Download(ctx context.Context, client *http.Client, rawURL string) (Payload, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if !IsValidURL(rawURL) {
		return Payload{}, fmt.Errorf("invalid url: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("unable to build request: %w", err)
	}
	res, err := client.Do(req)
	if err != nil {
		return Payload{}, fmt.Errorf("unable to download image file from URI: %s: %w", rawURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return Payload{}, fmt.Errorf("unable to download image file from URI: %s, status %s", rawURL, res.Status)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxDownloadSize+1))
	if err != nil {
		return Payload{}, fmt.Errorf("unable to read response body: %w", err)
	}
	if len(data) > maxDownloadSize {
		return Payload{}, fmt.Errorf("image at %s exceeds %d bytes", rawURL, maxDownloadSize)
	}

	ctype := DetectContentType(data)
	if !strings.HasPrefix(ctype, "image/") {
		return Payload{}, ErrNotImage
	}

	return Payload{
		Name:        URLFileName(rawURL),
		ContentType: ctype,
		Data:        data,
	}, nil
}

// DetectContentType sniffs the MIME type from the first 512 bytes of data.
// Formats the standard sniffer does not know (tiff) are recognised by magic number.
func DetectContentType(data []byte) string {
	if len(data) >= 4 {
		if bytes.Equal(data[:4], []byte("II*\x00")) || bytes.Equal(data[:4], []byte("MM\x00*")) {
			return "image/tiff"
		}
	}
	return http.DetectContentType(data)
}
