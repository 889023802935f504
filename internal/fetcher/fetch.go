package fetcher

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/voyagen/channelvault/internal/models"
)

// BrowserUserAgent is sent with every playlist request; some providers
// reject non-browser clients.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// DefaultTimeout bounds a single source fetch when none is configured.
const DefaultTimeout = 10 * time.Second

// FetchError reports why a source could not be retrieved.
type FetchError struct {
	Source models.Source
	Cause  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source.Name, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// Fetcher retrieves playlist documents over HTTP.
type Fetcher struct {
	client  *http.Client
	m3uPath string
}

// New returns a Fetcher that appends m3uPath to each source URL and gives up
// after timeout (DefaultTimeout if zero).
func New(m3uPath string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}, m3uPath: m3uPath}
}

// URL returns the playlist URL requested for src.
func (f *Fetcher) URL(src models.Source) string {
	return src.URL + f.m3uPath
}

// Fetch returns the raw playlist text of src. All failures are *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, src models.Source) (string, error) {
	body, err := f.get(ctx, f.URL(src))
	if err != nil {
		return "", &FetchError{Source: src, Cause: err}
	}
	return body, nil
}

// FetchAndParse fetches src and parses the playlist.
func (f *Fetcher) FetchAndParse(ctx context.Context, src models.Source) (ParseResult, error) {
	body, err := f.Fetch(ctx, src)
	if err != nil {
		return ParseResult{}, err
	}
	res, err := ParseM3UString(body)
	if err != nil {
		return ParseResult{}, &FetchError{Source: src, Cause: fmt.Errorf("parse: %w", err)}
	}
	return res, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("NewRequest: %w", err)
	}
	req.Header.Set("User-Agent", BrowserUserAgent)
	req.Header.Set("Accept-Encoding", "gzip, br")
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("Do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	body, err := decodeBody(resp)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("ReadAll: %w", err)
	}
	return string(data), nil
}

// decodeBody unwraps the response body according to Content-Encoding.
// Setting Accept-Encoding ourselves disables the transport's transparent gzip.
func decodeBody(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}
