package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/yberrad/newsgraph/internal/models"
)

// ErrScrollExpired reports that the server-side scroll cursor vanished before
// the stream was drained. It is always fatal: a silently truncated stream
// would leave exports incomplete without any signal, while rerunning an
// aborted job is safe because every job is idempotent.
var ErrScrollExpired = errors.New("scroll cursor expired")

const (
	initialScrollKeepAlive = 10 * time.Minute
	scrollKeepAlive        = 2 * time.Minute
)

// Hit is one scrolled document with its store id.
type Hit struct {
	ID     string          `json:"_id"`
	Source models.Document `json:"_source"`
}

type scrollResponse struct {
	ScrollID string `json:"_scroll_id"`
	Hits     struct {
		Hits []Hit `json:"hits"`
	} `json:"hits"`
}

// ScrollPages streams every document matching query through fn, one page at a
// time, in store order. Pages are fetched strictly sequentially; fn must
// finish before the next page is requested. The scroll cursor is cleared on
// return.
func (c *Client) ScrollPages(ctx context.Context, query map[string]any, pageSize int, fn func(page []Hit) error) error {
	if pageSize <= 0 {
		pageSize = 1000
	}

	payload, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("marshal scroll query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
		c.es.Search.WithScroll(initialScrollKeepAlive),
		c.es.Search.WithSize(pageSize),
	)
	if err != nil {
		return fmt.Errorf("open scroll: %w", err)
	}

	page, err := decodeScrollPage(res)
	if err != nil {
		return err
	}

	scrollID := page.ScrollID
	defer c.clearScroll(scrollID)

	for len(page.Hits.Hits) > 0 {
		if err := fn(page.Hits.Hits); err != nil {
			return err
		}

		res, err := c.es.Scroll(
			c.es.Scroll.WithContext(ctx),
			c.es.Scroll.WithScrollID(scrollID),
			c.es.Scroll.WithScroll(scrollKeepAlive),
		)
		if err != nil {
			return fmt.Errorf("continue scroll: %w", err)
		}

		page, err = decodeScrollPage(res)
		if err != nil {
			return err
		}
		scrollID = page.ScrollID
	}

	return nil
}

// ScrollFold folds an accumulator across every page matching the query. The
// zero value of T seeds the first step invocation.
func ScrollFold[T any](ctx context.Context, c *Client, query map[string]any, pageSize int, step func(page []Hit, acc T) (T, error)) (T, error) {
	var acc T
	err := c.ScrollPages(ctx, query, pageSize, func(page []Hit) error {
		next, err := step(page, acc)
		if err != nil {
			return err
		}
		acc = next
		return nil
	})
	return acc, err
}

func decodeScrollPage(res *esapi.Response) (*scrollResponse, error) {
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, res.Body)
		return nil, ErrScrollExpired
	}
	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("scroll failed: %s", strings.TrimSpace(string(data)))
	}

	var page scrollResponse
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode scroll response: %w", err)
	}
	return &page, nil
}

func (c *Client) clearScroll(scrollID string) {
	if scrollID == "" {
		return
	}

	res, err := c.es.ClearScroll(c.es.ClearScroll.WithScrollID(scrollID))
	if err != nil {
		c.log.Debug("clear scroll", slog.Any("err", err))
		return
	}
	res.Body.Close()
}
