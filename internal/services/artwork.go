package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/audiograb/internal/shared"
)

// maxArtworkSize caps how much of a thumbnail response is read.
const maxArtworkSize = 10 << 20

// ArtworkClient downloads thumbnails over HTTP.
type ArtworkClient struct {
	httpClient *http.Client
}

// NewArtworkClient creates an [ArtworkClient]. A nil client gets a 30 second timeout.
func NewArtworkClient(client *http.Client) *ArtworkClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ArtworkClient{httpClient: client}
}

// Fetch downloads the image at url and returns the raw bytes.
func (a *ArtworkClient) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty artwork URL", shared.ErrMissingArgument)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrInvalidInput, err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to download artwork: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: failed to download artwork: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%w: artwork has content type %q", shared.ErrUnsupportedFile, ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtworkSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read artwork: %v", shared.ErrAPIRequest, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty artwork response", shared.ErrAPIRequest)
	}
	return data, nil
}
