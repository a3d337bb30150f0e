// Package aggregate reduces raw annotation extractions to the ranked shapes
// the query surface serves.
package aggregate

import (
	"context"
	"sort"

	"github.com/yberrad/newsgraph/internal/elasticsearch"
	"github.com/yberrad/newsgraph/internal/models"
)

// LocationCount is one distinct resolved location with its mention count.
type LocationCount struct {
	Name      string  `json:"location"`
	Frequency int     `json:"frequency"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TopLocations reduces a flat mention list to one row per distinct resolved
// location. Two mentions are the same location only when name and both
// coordinates are exactly equal; frequency counts every equal mention in the
// input. Unresolved and nameless mentions are dropped. Rows come back sorted
// by frequency, ties broken by name.
func TopLocations(mentions []models.LocationMention) []LocationCount {
	counts := make(map[models.LocationMention]int)
	var distinct []models.LocationMention

	for _, m := range mentions {
		if m.Name == "" || !m.Resolved() {
			continue
		}
		if _, ok := counts[m]; !ok {
			distinct = append(distinct, m)
		}
		counts[m]++
	}

	out := make([]LocationCount, 0, len(distinct))
	for _, m := range distinct {
		out = append(out, LocationCount{
			Name:      m.Name,
			Frequency: counts[m],
			Latitude:  m.Latitude,
			Longitude: m.Longitude,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Frequency == out[j].Frequency {
			return out[i].Name < out[j].Name
		}
		return out[i].Frequency > out[j].Frequency
	})

	return out
}

// Scroller is the read side of the store the collector needs.
type Scroller interface {
	ScrollPages(ctx context.Context, query map[string]any, pageSize int, fn func(page []elasticsearch.Hit) error) error
}

// CollectTitleMentions gathers every title location mention in the index.
func CollectTitleMentions(ctx context.Context, store Scroller, pageSize int) ([]models.LocationMention, error) {
	var mentions []models.LocationMention
	err := store.ScrollPages(ctx, elasticsearch.MatchAllQuery(), pageSize, func(page []elasticsearch.Hit) error {
		for _, hit := range page {
			mentions = append(mentions, hit.Source.NerLocaTitle...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mentions, nil
}
