// Package knowledge looks up organization names in a Wikipedia-compatible
// knowledge base.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yberrad/newsgraph/internal/httpx"
)

// ErrNotFound reports that the knowledge base has no page for the name.
var ErrNotFound = errors.New("no knowledge base entry")

// ErrAmbiguous reports that the name resolves to a disambiguation page.
var ErrAmbiguous = errors.New("ambiguous knowledge base entry")

// Summary is the short description and canonical link for one name.
type Summary struct {
	Summary string
	Link    string
}

// Base is the knowledge-base capability consumed by the knowledge job.
type Base interface {
	Lookup(ctx context.Context, name string) (Summary, error)
}

// WikipediaClient queries the Wikipedia REST summary endpoint.
type WikipediaClient struct {
	base    string
	client  *http.Client
	retries int
}

// NewWikipediaClient builds a client for the knowledge base at addr,
// e.g. https://fr.wikipedia.org.
func NewWikipediaClient(addr string, retries int) *WikipediaClient {
	return &WikipediaClient{
		base:    strings.TrimRight(addr, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		retries: retries,
	}
}

// Lookup returns the page summary and canonical URL for name. Missing pages
// yield ErrNotFound, disambiguation pages ErrAmbiguous.
func (c *WikipediaClient) Lookup(ctx context.Context, name string) (Summary, error) {
	endpoint := c.base + "/api/rest_v1/page/summary/" + url.PathEscape(name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("create request: %w", err)
	}

	res, err := httpx.DoWithRetry(ctx, c.client, req, c.retries)
	if err != nil {
		return Summary{}, fmt.Errorf("knowledge lookup %q: %w", name, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, res.Body)
		return Summary{}, ErrNotFound
	}
	if res.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(res.Body)
		return Summary{}, fmt.Errorf("knowledge lookup %q returned HTTP %d: %s", name, res.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Type        string `json:"type"`
		Extract     string `json:"extract"`
		ContentURLs struct {
			Desktop struct {
				Page string `json:"page"`
			} `json:"desktop"`
		} `json:"content_urls"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return Summary{}, fmt.Errorf("decode knowledge response: %w", err)
	}

	if parsed.Type == "disambiguation" {
		return Summary{}, ErrAmbiguous
	}

	return Summary{Summary: parsed.Extract, Link: parsed.ContentURLs.Desktop.Page}, nil
}
