// Package payload resolves extraction payload references, either local file
// paths or http(s) URLs, to raw bytes with a detected MIME type.
package payload

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// Blob is a fetched document: raw bytes plus their MIME type.
type Blob struct {
	Data     []byte
	MIMEType string
}

// Base64 returns the blob's bytes encoded for transports that require it.
func (b *Blob) Base64() string {
	return base64.StdEncoding.EncodeToString(b.Data)
}

// Source fetches payload bytes. The zero value is not usable; construct
// with NewSource or supply your own HTTP client.
type Source struct {
	Client *http.Client
}

// NewSource creates a Source with a default HTTP client.
func NewSource() *Source {
	return &Source{Client: &http.Client{Timeout: 30 * time.Second}}
}

// Fetch resolves ref to a Blob. A ref starting with http:// or https:// is
// fetched over the network; anything else is read as a local file path.
func (s *Source) Fetch(ctx context.Context, ref string) (*Blob, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return s.fetchURL(ctx, ref)
	}
	return s.fetchFile(ref)
}

func (s *Source) fetchFile(path string) (*Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &Blob{Data: data, MIMEType: mimetype.Detect(data).String()}, nil
}

func (s *Source) fetchURL(ctx context.Context, url string) (*Blob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	mime := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	// Servers that do not know better send application/octet-stream;
	// content sniffing gives a more useful answer for the backend.
	if mime == "" || mime == "application/octet-stream" {
		mime = mimetype.Detect(data).String()
	}

	return &Blob{Data: data, MIMEType: mime}, nil
}
