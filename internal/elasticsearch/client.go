package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Client wraps go-elasticsearch with helpers tailored to this project.
type Client struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger
}

// New instantiates the Elasticsearch client.
func New(addr, index string, logger *slog.Logger) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{addr},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{es: es, index: index, log: logger}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}

	return nil
}

// Health pings the cluster to ensure connectivity.
func (c *Client) Health(ctx context.Context) error {
	res, err := c.es.Cluster.Health(c.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(res.Body)
		return fmt.Errorf("cluster health bad: %s", strings.TrimSpace(string(data)))
	}
	return nil
}

// MatchAllQuery selects every document in the index.
func MatchAllQuery() map[string]any {
	return map[string]any{
		"query": map[string]any{
			"match_all": map[string]any{},
		},
	}
}

// FieldMissingQuery selects documents that do not yet carry the given field.
// Enrichment jobs use it as their work-remaining predicate: a document drops
// out of the result set the moment its target field is written.
func FieldMissingQuery(field string) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must_not": map[string]any{
					"exists": map[string]any{
						"field": field,
					},
				},
			},
		},
	}
}

// UpdateField writes a single derived field on one document via a partial
// update. Callers only invoke it for documents selected by FieldMissingQuery,
// so an existing value is never overwritten.
func (c *Client) UpdateField(ctx context.Context, id, field string, value any) error {
	payload, err := json.Marshal(map[string]any{
		"doc": map[string]any{field: value},
	})
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	req := esapi.UpdateRequest{
		Index:      c.index,
		DocumentID: id,
		Body:       bytes.NewReader(payload),
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("update doc %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("update doc %s failed: %s", id, strings.TrimSpace(string(body)))
	}

	return nil
}

// BulkDoc is one document to bulk-index, with an optional explicit id.
type BulkDoc struct {
	ID     string
	Source json.RawMessage
}

// BulkIndex loads documents with a single bulk request and reports per-item
// failures as one error.
func (c *Client) BulkIndex(ctx context.Context, docs []BulkDoc) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		action := map[string]any{
			"index": map[string]any{"_index": c.index, "_id": doc.ID},
		}
		meta, err := json.Marshal(action)
		if err != nil {
			return fmt.Errorf("marshal bulk action: %w", err)
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(doc.Source)
		buf.WriteByte('\n')
	}

	res, err := c.es.Bulk(
		bytes.NewReader(buf.Bytes()),
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithIndex(c.index),
	)
	if err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return fmt.Errorf("bulk index failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  struct {
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}

	if parsed.Errors {
		failed := 0
		reason := ""
		for _, item := range parsed.Items {
			for _, op := range item {
				if op.Status >= http.StatusBadRequest {
					failed++
					if reason == "" {
						reason = op.Error.Reason
					}
				}
			}
		}
		return fmt.Errorf("bulk index rejected %d documents: %s", failed, reason)
	}

	return nil
}

// CountDocuments returns the number of documents published inside the range.
func (c *Client) CountDocuments(ctx context.Context, start, end time.Time) (int64, error) {
	payload, err := json.Marshal(rangeQuery(start, end))
	if err != nil {
		return 0, fmt.Errorf("marshal count body: %w", err)
	}

	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(c.index),
		c.es.Count.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return 0, fmt.Errorf("count failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return parsed.Count, nil
}

// SourceCount is one feed with its document count.
type SourceCount struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}

// SourceBreakdown returns per-feed document counts inside the range.
func (c *Client) SourceBreakdown(ctx context.Context, start, end time.Time) ([]SourceCount, error) {
	body := rangeQuery(start, end)
	body["size"] = 0
	body["aggs"] = map[string]any{
		"unique_feed": map[string]any{
			"terms": map[string]any{
				"field": "Feed.keyword",
				"size":  375,
			},
		},
	}

	var parsed struct {
		Aggregations struct {
			UniqueFeed struct {
				Buckets []struct {
					Key      string `json:"key"`
					DocCount int64  `json:"doc_count"`
				} `json:"buckets"`
			} `json:"unique_feed"`
		} `json:"aggregations"`
	}
	if err := c.search(ctx, body, &parsed); err != nil {
		return nil, err
	}

	out := make([]SourceCount, 0, len(parsed.Aggregations.UniqueFeed.Buckets))
	for _, b := range parsed.Aggregations.UniqueFeed.Buckets {
		out = append(out, SourceCount{Source: b.Key, Count: b.DocCount})
	}
	return out, nil
}

// HistogramBucket is one date-histogram bucket.
type HistogramBucket struct {
	Date  time.Time `json:"date"`
	Count int64     `json:"count"`
}

// PublishedHistogram buckets documents in the range by publication date.
// Interval is an Elasticsearch calendar interval (day, week, month, year).
func (c *Client) PublishedHistogram(ctx context.Context, start, end time.Time, interval string) ([]HistogramBucket, error) {
	body := rangeQuery(start, end)
	body["size"] = 0
	body["aggs"] = map[string]any{
		"published_histogram": map[string]any{
			"date_histogram": map[string]any{
				"field":             "published",
				"calendar_interval": interval,
			},
		},
	}

	var parsed struct {
		Aggregations struct {
			PublishedHistogram struct {
				Buckets []struct {
					KeyAsString string `json:"key_as_string"`
					DocCount    int64  `json:"doc_count"`
				} `json:"buckets"`
			} `json:"published_histogram"`
		} `json:"aggregations"`
	}
	if err := c.search(ctx, body, &parsed); err != nil {
		return nil, err
	}

	out := make([]HistogramBucket, 0, len(parsed.Aggregations.PublishedHistogram.Buckets))
	for _, b := range parsed.Aggregations.PublishedHistogram.Buckets {
		ts, err := time.Parse(time.RFC3339, b.KeyAsString)
		if err != nil {
			return nil, fmt.Errorf("parse bucket date %q: %w", b.KeyAsString, err)
		}
		out = append(out, HistogramBucket{Date: ts, Count: b.DocCount})
	}
	return out, nil
}

// PublishedBounds returns the earliest and latest publication dates present.
func (c *Client) PublishedBounds(ctx context.Context) (time.Time, time.Time, error) {
	body := map[string]any{
		"size": 0,
		"aggs": map[string]any{
			"minmax": map[string]any{
				"stats": map[string]any{"field": "published"},
			},
		},
	}

	var parsed struct {
		Aggregations struct {
			MinMax struct {
				MinAsString string `json:"min_as_string"`
				MaxAsString string `json:"max_as_string"`
			} `json:"minmax"`
		} `json:"aggregations"`
	}
	if err := c.search(ctx, body, &parsed); err != nil {
		return time.Time{}, time.Time{}, err
	}

	min, err := time.Parse(time.RFC3339, parsed.Aggregations.MinMax.MinAsString)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse min date: %w", err)
	}
	max, err := time.Parse(time.RFC3339, parsed.Aggregations.MinMax.MaxAsString)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse max date: %w", err)
	}
	return min, max, nil
}

// search runs one non-scrolling search and decodes the response into dst.
func (c *Client) search(ctx context.Context, body map[string]any, dst any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return fmt.Errorf("search failed: %s", strings.TrimSpace(string(data)))
	}

	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode search response: %w", err)
	}
	return nil
}

func rangeQuery(start, end time.Time) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"range": map[string]any{
						"published": map[string]any{
							"gte": start.UTC().Format(time.RFC3339),
							"lte": end.UTC().Format(time.RFC3339),
						},
					},
				},
			},
		},
	}
}
