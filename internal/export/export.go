// Package export flattens entity annotations to CSV tables and merges them
// into the single table the graph builder reads.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/yberrad/newsgraph/internal/elasticsearch"
	"github.com/yberrad/newsgraph/internal/models"
)

// File names inside the export directory.
const (
	OrganizationsFile = "organizations.csv"
	LocationsFile     = "locations.csv"
	PersonsFile       = "persons.csv"
	LinksFile         = "links.csv"
	MergedFile        = "NERs.csv"
)

// EntityType selects which annotation a NER export dumps.
type EntityType string

const (
	TypeOrganization EntityType = "org"
	TypeLocation     EntityType = "loca"
	TypePerson       EntityType = "per"
)

// FileName returns the CSV file for the type.
func (t EntityType) FileName() string {
	switch t {
	case TypeLocation:
		return LocationsFile
	case TypePerson:
		return PersonsFile
	default:
		return OrganizationsFile
	}
}

// Column returns the entity column header for the type.
func (t EntityType) Column() string {
	return "NERs_" + string(t)
}

// Scroller is the read side of the store the exporter needs.
type Scroller interface {
	ScrollPages(ctx context.Context, query map[string]any, pageSize int, fn func(page []elasticsearch.Hit) error) error
}

// Exporter dumps annotation tables into Dir.
type Exporter struct {
	Store    Scroller
	Log      *slog.Logger
	Dir      string
	PageSize int
}

// ExportEntities appends one row per document to the type's CSV file: the
// publication date, the document id, and the title plus message entities as a
// JSON array cell. The header is written only when the file is empty at job
// start.
func (e *Exporter) ExportEntities(ctx context.Context, kind EntityType) error {
	path := filepath.Join(e.Dir, kind.FileName())

	f, w, err := openAppend(path, []string{"date", "id", kind.Column()})
	if err != nil {
		return err
	}
	defer f.Close()

	rows := 0
	err = e.Store.ScrollPages(ctx, elasticsearch.MatchAllQuery(), e.PageSize, func(page []elasticsearch.Hit) error {
		for _, hit := range page {
			cell, err := entityCell(kind, hit.Source)
			if err != nil {
				return fmt.Errorf("serialize entities for %s: %w", hit.ID, err)
			}
			if err := w.Write([]string{hit.Source.Published.UTC().Format(time.RFC3339), hit.ID, cell}); err != nil {
				return fmt.Errorf("write row for %s: %w", hit.ID, err)
			}
			rows++
		}
		w.Flush()
		return w.Error()
	})
	if err != nil {
		return err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}

	e.Log.Info("export finished", slog.String("file", kind.FileName()), slog.Int("rows", rows))
	return nil
}

// ExportLinks appends one (org, link) row per knowledge record found on any
// document, title records before message records. Duplicate organization
// names are kept; readers deduplicate with first occurrence winning.
func (e *Exporter) ExportLinks(ctx context.Context) error {
	path := filepath.Join(e.Dir, LinksFile)

	f, w, err := openAppend(path, []string{"org", "link"})
	if err != nil {
		return err
	}
	defer f.Close()

	rows := 0
	err = e.Store.ScrollPages(ctx, elasticsearch.MatchAllQuery(), e.PageSize, func(page []elasticsearch.Hit) error {
		for _, hit := range page {
			for _, record := range hit.Source.WikiTitle {
				if err := w.Write([]string{record.Org, record.Link}); err != nil {
					return fmt.Errorf("write link row for %s: %w", hit.ID, err)
				}
				rows++
			}
			for _, record := range hit.Source.WikiMessage {
				if err := w.Write([]string{record.Org, record.Link}); err != nil {
					return fmt.Errorf("write link row for %s: %w", hit.ID, err)
				}
				rows++
			}
		}
		w.Flush()
		return w.Error()
	})
	if err != nil {
		return err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}

	e.Log.Info("export finished", slog.String("file", LinksFile), slog.Int("rows", rows))
	return nil
}

// RemoveExports deletes every export file in dir so the next run rebuilds
// them from scratch. Missing files are fine.
func RemoveExports(dir string) error {
	for _, name := range []string{OrganizationsFile, LocationsFile, PersonsFile, LinksFile, MergedFile} {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return nil
}

// openAppend opens path for appending and writes the header when the file is
// empty at open time.
func openAppend(path string, header []string) (*os.File, *csv.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create export dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("write header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("write header: %w", err)
		}
	}

	return f, w, nil
}

func entityCell(kind EntityType, doc models.Document) (string, error) {
	var value any
	switch kind {
	case TypeLocation:
		value = combine(doc.NerLocaTitle, doc.NerLocaMessage)
	case TypePerson:
		value = combine(doc.NerPerTitle, doc.NerPerMessage)
	default:
		value = combine(doc.NerOrgTitle, doc.NerOrgMessage)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func combine[T any](title, message []T) []T {
	out := make([]T, 0, len(title)+len(message))
	out = append(out, title...)
	return append(out, message...)
}
