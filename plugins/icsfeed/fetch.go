package icsfeed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	appLog "calingen/internal/log"
)

// cacheEntry holds HTTP cache metadata for a single ICS URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher fetches ICS feeds with HTTP caching (ETag / Last-Modified) and a
// disk-backed body cache, so repeated resolutions of the same feed do not
// re-download unchanged calendars.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a Fetcher storing its cache under cacheDir.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		// Fallback to a relative dir so that development runs without
		// extra setup.
		cacheDir = "./var/ics-cache"
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 15 * time.Second},
		cacheDir: cacheDir,
	}
}

// Fetch returns the ICS payload of url, from cache when the server
// responds 304 Not Modified.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	meta := f.loadMeta(url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if meta != nil {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		// Network failure: fall back to a cached body when one exists.
		if body, cacheErr := f.loadBody(url); cacheErr == nil {
			appLog.Warn("ics fetch failed, using cached body", "url", url)
			return body, nil
		}
		return nil, fmt.Errorf("icsfeed: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		body, err := f.loadBody(url)
		if err != nil {
			return nil, fmt.Errorf("icsfeed: 304 but cache is missing for %s: %w", url, err)
		}
		return body, nil
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		f.store(url, body, &cacheEntry{
			URL:          url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now(),
		})
		return body, nil
	default:
		return nil, fmt.Errorf("icsfeed: fetch %s: unexpected status %d", url, resp.StatusCode)
	}
}

func (f *Fetcher) cachePath(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *Fetcher) loadMeta(url string) *cacheEntry {
	data, err := os.ReadFile(f.cachePath(url) + ".json")
	if err != nil {
		return nil
	}
	var meta cacheEntry
	if err := json.Unmarshal(data, &meta); err != nil || meta.URL != url {
		return nil
	}
	return &meta
}

func (f *Fetcher) loadBody(url string) ([]byte, error) {
	return os.ReadFile(f.cachePath(url) + ".ics")
}

func (f *Fetcher) store(url string, body []byte, meta *cacheEntry) {
	if err := os.MkdirAll(f.cacheDir, 0o700); err != nil {
		appLog.Error("ics cache dir", err, "dir", f.cacheDir)
		return
	}
	base := f.cachePath(url)
	if err := os.WriteFile(base+".ics", body, 0o600); err != nil {
		appLog.Error("ics cache write", err, "url", url)
		return
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return
	}
	if err := os.WriteFile(base+".json", data, 0o600); err != nil {
		appLog.Error("ics cache meta write", err, "url", url)
	}
}
