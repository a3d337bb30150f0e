// Package enrich runs field-gated enrichment jobs over the document store.
//
// A job is one pure per-document transform plus the name of the field its
// result is stored under. Work selection is the field-absent query: a
// document is processed if and only if its target field has never been
// written, so an interrupted run resumes where it stopped and a completed
// run finds nothing left to do.
package enrich

import (
	"context"
	"log/slog"

	"github.com/yberrad/newsgraph/internal/elasticsearch"
	"github.com/yberrad/newsgraph/internal/models"
)

// Store is the slice of the Elasticsearch client the runner needs.
type Store interface {
	ScrollPages(ctx context.Context, query map[string]any, pageSize int, fn func(page []elasticsearch.Hit) error) error
	UpdateField(ctx context.Context, id, field string, value any) error
}

// Job is one enrichment pass: select documents lacking Field, run Process on
// each, write the result back under Field.
type Job struct {
	Name    string
	Field   string
	Process func(ctx context.Context, doc models.Document) (any, error)
}

// Stats counts the outcome of one run.
type Stats struct {
	Processed int
	Skipped   int
}

// Runner executes jobs page by page.
type Runner struct {
	store    Store
	log      *slog.Logger
	pageSize int
}

// NewRunner builds a runner reading pageSize documents per scroll page.
func NewRunner(store Store, log *slog.Logger, pageSize int) *Runner {
	return &Runner{store: store, log: log, pageSize: pageSize}
}

// Run processes every document still lacking the job's target field. Each
// document gets exactly one write; a transform failure skips that document
// and continues; a store failure aborts the run.
func (r *Runner) Run(ctx context.Context, job Job) (Stats, error) {
	var stats Stats

	query := elasticsearch.FieldMissingQuery(job.Field)

	err := r.store.ScrollPages(ctx, query, r.pageSize, func(page []elasticsearch.Hit) error {
		for _, hit := range page {
			value, err := job.Process(ctx, hit.Source)
			if err != nil {
				r.log.Warn("transform failed, skipping document",
					slog.String("job", job.Name),
					slog.String("id", hit.ID),
					slog.Any("err", err),
				)
				stats.Skipped++
				continue
			}

			if err := r.store.UpdateField(ctx, hit.ID, job.Field, value); err != nil {
				return err
			}
			stats.Processed++
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	r.log.Info("enrichment job finished",
		slog.String("job", job.Name),
		slog.Int("processed", stats.Processed),
		slog.Int("skipped", stats.Skipped),
	)
	return stats, nil
}
