package player

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/desertthunder/imusic/internal/shared"
)

const userAgent = "imusic/1.0"

// memoryStream is a fully buffered track. It satisfies io.ReadSeekCloser so decoders can seek.
type memoryStream struct {
	*bytes.Reader
}

func (memoryStream) Close() error { return nil }

// NewMediaClient returns an HTTP client for media downloads. Only connection setup is bounded;
// large tracks may take a while to transfer.
func NewMediaClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       300 * time.Second,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
		},
	}
}

// fetch downloads url into memory. Responses larger than maxBytes are rejected when maxBytes > 0.
func fetch(ctx context.Context, client *http.Client, url string, maxBytes int64) (memoryStream, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return memoryStream{}, "", fmt.Errorf("%w: failed to create media request: %v", shared.ErrInvalidArgument, err)
	}
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return memoryStream{}, "", fmt.Errorf("%w: %w", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return memoryStream{}, "", fmt.Errorf("%w: media request returned %s", shared.ErrTransport, resp.Status)
	}
	if maxBytes > 0 && resp.ContentLength > maxBytes {
		return memoryStream{}, "", fmt.Errorf("%w: track is %d bytes, limit is %d", shared.ErrInvalidArgument, resp.ContentLength, maxBytes)
	}

	body := io.Reader(resp.Body)
	if maxBytes > 0 {
		body = io.LimitReader(resp.Body, maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return memoryStream{}, "", fmt.Errorf("%w: failed to read media: %w", shared.ErrTransport, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return memoryStream{}, "", fmt.Errorf("%w: track exceeds %d bytes", shared.ErrInvalidArgument, maxBytes)
	}

	return memoryStream{bytes.NewReader(data)}, resp.Header.Get("Content-Type"), nil
}
