package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const maxDownloadSize = 32 << 20

var httpClient = &http.Client{Timeout: 60 * time.Second}

// openInput returns the CSV stream and a label for logs. Exactly one of path
// and rawURL must be set; path "-" reads stdin.
func openInput(ctx context.Context, path, rawURL string) (io.ReadCloser, string, error) {
	switch {
	case path != "" && rawURL != "":
		return nil, "", errors.New("use either -csv or -url, not both")
	case path == "-":
		return io.NopCloser(os.Stdin), "stdin", nil
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return nil, "", err
		}
		return f, path, nil
	case rawURL != "":
		body, err := download(ctx, rawURL)
		if err != nil {
			return nil, "", err
		}
		return body, rawURL, nil
	}
	return nil, "", errors.New("no input: pass -csv <path>, -csv - or -url <url>")
}

func download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download csv: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("download csv: status %d", resp.StatusCode)
	}
	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(resp.Body, maxDownloadSize), resp.Body}, nil
}
