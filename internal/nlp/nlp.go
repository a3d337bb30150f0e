// Package nlp talks to the external tagging service. The service is treated
// as an opaque capability: it turns text into part-of-speech tokens and typed
// named entities.
package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yberrad/newsgraph/internal/httpx"
	"github.com/yberrad/newsgraph/internal/models"
)

// Entity is one named entity recognized in a text.
type Entity struct {
	Text string
	Kind models.EntityKind
}

// Tagger is the tagging capability consumed by the enrichment jobs.
type Tagger interface {
	Tag(ctx context.Context, text string) ([]models.POSTag, error)
	Entities(ctx context.Context, text string) ([]Entity, error)
}

// HTTPClient calls a tagging server exposing /tag and /entities endpoints.
type HTTPClient struct {
	base    string
	client  *http.Client
	retries int
}

// NewHTTPClient builds a client for the tagging server at addr.
func NewHTTPClient(addr string, retries int) *HTTPClient {
	return &HTTPClient{
		base:    strings.TrimRight(addr, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		retries: retries,
	}
}

// Tag returns the (token, tag) sequence for text, preserving token order.
func (c *HTTPClient) Tag(ctx context.Context, text string) ([]models.POSTag, error) {
	var parsed struct {
		Tokens []models.POSTag `json:"tokens"`
	}
	if err := c.post(ctx, "/tag", text, &parsed); err != nil {
		return nil, err
	}
	return parsed.Tokens, nil
}

// Entities returns the named entities recognized in text. Entities with a
// label outside person/organization/location are dropped.
func (c *HTTPClient) Entities(ctx context.Context, text string) ([]Entity, error) {
	var parsed struct {
		Entities []struct {
			Text  string `json:"text"`
			Label string `json:"label"`
		} `json:"entities"`
	}
	if err := c.post(ctx, "/entities", text, &parsed); err != nil {
		return nil, err
	}

	out := make([]Entity, 0, len(parsed.Entities))
	for _, ent := range parsed.Entities {
		kind, ok := kindForLabel(ent.Label)
		if !ok {
			continue
		}
		out = append(out, Entity{Text: ent.Text, Kind: kind})
	}
	return out, nil
}

func (c *HTTPClient) post(ctx context.Context, path, text string, dst any) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := httpx.DoWithRetry(ctx, c.client, req, c.retries)
	if err != nil {
		return fmt.Errorf("tagging service %s: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(res.Body)
		return fmt.Errorf("tagging service %s returned HTTP %d: %s", path, res.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode tagging response: %w", err)
	}
	return nil
}

// kindForLabel maps tagger labels (spaCy-style) to entity kinds.
func kindForLabel(label string) (models.EntityKind, bool) {
	switch strings.ToUpper(label) {
	case "PER", "PERSON":
		return models.KindPerson, true
	case "ORG":
		return models.KindOrganization, true
	case "LOC", "GPE":
		return models.KindLocation, true
	default:
		return "", false
	}
}
