package enrich_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yberrad/newsgraph/internal/elasticsearch"
	"github.com/yberrad/newsgraph/internal/enrich"
	"github.com/yberrad/newsgraph/internal/geocode"
	"github.com/yberrad/newsgraph/internal/knowledge"
	"github.com/yberrad/newsgraph/internal/models"
	"github.com/yberrad/newsgraph/internal/nlp"
)

type fakeDoc struct {
	id     string
	source models.Document
}

// fakeStore implements the field-absent selection contract in memory: a
// document is returned for a field-missing query until that field has been
// written once.
type fakeStore struct {
	docs      []fakeDoc
	written   map[string]map[string]any
	writes    int
	updateErr error
}

func newFakeStore(docs ...fakeDoc) *fakeStore {
	return &fakeStore{docs: docs, written: make(map[string]map[string]any)}
}

func (s *fakeStore) ScrollPages(_ context.Context, query map[string]any, pageSize int, fn func(page []elasticsearch.Hit) error) error {
	field := fieldFromQuery(query)

	var hits []elasticsearch.Hit
	for _, doc := range s.docs {
		if field != "" {
			if _, ok := s.written[doc.id][field]; ok {
				continue
			}
		}
		hits = append(hits, elasticsearch.Hit{ID: doc.id, Source: doc.source})
	}

	for len(hits) > 0 {
		page := hits
		if len(page) > pageSize {
			page = hits[:pageSize]
		}
		hits = hits[len(page):]
		if err := fn(page); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStore) UpdateField(_ context.Context, id, field string, value any) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if s.written[id] == nil {
		s.written[id] = make(map[string]any)
	}
	s.written[id][field] = value
	s.writes++
	return nil
}

func fieldFromQuery(query map[string]any) string {
	q, _ := query["query"].(map[string]any)
	b, _ := q["bool"].(map[string]any)
	mn, _ := b["must_not"].(map[string]any)
	ex, _ := mn["exists"].(map[string]any)
	field, _ := ex["field"].(string)
	return field
}

// stubTagger tags every whitespace token and returns canned entities.
type stubTagger struct {
	entities map[string][]nlp.Entity
	failOn   string
}

func (t *stubTagger) Tag(_ context.Context, text string) ([]models.POSTag, error) {
	if t.failOn != "" && strings.Contains(text, t.failOn) {
		return nil, errors.New("tagger unavailable")
	}
	var tags []models.POSTag
	for _, token := range strings.Fields(text) {
		tags = append(tags, models.POSTag{Token: token, Tag: "X"})
	}
	return tags, nil
}

func (t *stubTagger) Entities(_ context.Context, text string) ([]nlp.Entity, error) {
	if t.failOn != "" && strings.Contains(text, t.failOn) {
		return nil, errors.New("tagger unavailable")
	}
	return t.entities[text], nil
}

type stubGeocoder struct {
	points map[string]geocode.Point
}

func (g *stubGeocoder) Resolve(_ context.Context, name string) (geocode.Point, error) {
	if point, ok := g.points[name]; ok {
		return point, nil
	}
	return geocode.Point{}, geocode.ErrNotFound
}

type stubBase struct {
	summaries map[string]knowledge.Summary
	ambiguous map[string]bool
}

func (b *stubBase) Lookup(_ context.Context, name string) (knowledge.Summary, error) {
	if b.ambiguous[name] {
		return knowledge.Summary{}, knowledge.ErrAmbiguous
	}
	if summary, ok := b.summaries[name]; ok {
		return summary, nil
	}
	return knowledge.Summary{}, knowledge.ErrNotFound
}

func testRunner(store enrich.Store) *enrich.Runner {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return enrich.NewRunner(store, log, 2)
}

func TestRunIsIdempotent(t *testing.T) {
	store := newFakeStore(
		fakeDoc{id: "a", source: models.Document{Title: "Un titre"}},
		fakeDoc{id: "b", source: models.Document{Title: "Autre titre"}},
		fakeDoc{id: "c", source: models.Document{Title: "Encore un"}},
	)
	runner := testRunner(store)
	job := enrich.POSTags(models.FieldTitle, &stubTagger{})

	stats, err := runner.Run(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Processed)
	require.Equal(t, 3, store.writes)

	stats, err = runner.Run(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Processed)
	require.Equal(t, 3, store.writes)
}

func TestPOSTagsPreserveTokenOrder(t *testing.T) {
	store := newFakeStore(fakeDoc{id: "a", source: models.Document{Title: "A B C"}})
	runner := testRunner(store)

	_, err := runner.Run(context.Background(), enrich.POSTags(models.FieldTitle, &stubTagger{}))
	require.NoError(t, err)

	tags, ok := store.written["a"]["pos_tag_title"].([]models.POSTag)
	require.True(t, ok)
	require.Equal(t, []models.POSTag{
		{Token: "A", Tag: "X"},
		{Token: "B", Tag: "X"},
		{Token: "C", Tag: "X"},
	}, tags)
}

func TestPersonsKeepTaggerOrderAndDuplicates(t *testing.T) {
	tagger := &stubTagger{entities: map[string][]nlp.Entity{
		"Jane rencontre Acme et Jane": {
			{Text: "Jane", Kind: models.KindPerson},
			{Text: "Acme", Kind: models.KindOrganization},
			{Text: "Jane", Kind: models.KindPerson},
		},
	}}
	store := newFakeStore(fakeDoc{id: "a", source: models.Document{Title: "Jane rencontre Acme et Jane"}})
	runner := testRunner(store)

	_, err := runner.Run(context.Background(), enrich.Persons(models.FieldTitle, tagger))
	require.NoError(t, err)

	names, ok := store.written["a"]["ner_per_title"].([]string)
	require.True(t, ok)
	require.Equal(t, []string{"Jane", "Jane"}, names)
}

func TestLocationsDegradeToSentinel(t *testing.T) {
	tagger := &stubTagger{entities: map[string][]nlp.Entity{
		"Paris et Nulle-Part": {
			{Text: "Paris", Kind: models.KindLocation},
			{Text: "Nulle-Part", Kind: models.KindLocation},
		},
	}}
	geocoder := &stubGeocoder{points: map[string]geocode.Point{
		"Paris": {Latitude: 48.8, Longitude: 2.3},
	}}
	store := newFakeStore(fakeDoc{id: "a", source: models.Document{Title: "Paris et Nulle-Part"}})
	runner := testRunner(store)

	_, err := runner.Run(context.Background(), enrich.Locations(models.FieldTitle, tagger, geocoder))
	require.NoError(t, err)

	mentions, ok := store.written["a"]["ner_loca_title"].([]models.LocationMention)
	require.True(t, ok)
	require.Equal(t, []models.LocationMention{
		{Name: "Paris", Latitude: 48.8, Longitude: 2.3},
		{Name: "Nulle-Part", Latitude: -1, Longitude: -1},
	}, mentions)
}

func TestKnowledgeKeepsEmptyRecords(t *testing.T) {
	base := &stubBase{
		summaries: map[string]knowledge.Summary{
			"Acme": {Summary: "Une entreprise.", Link: "https://fr.wikipedia.org/wiki/Acme"},
		},
		ambiguous: map[string]bool{"Mercure": true},
	}
	store := newFakeStore(fakeDoc{id: "a", source: models.Document{
		NerOrgTitle: []string{"Acme", "Inconnue", "Mercure"},
	}})
	runner := testRunner(store)

	_, err := runner.Run(context.Background(), enrich.Knowledge(models.FieldTitle, base))
	require.NoError(t, err)

	records, ok := store.written["a"]["wiki_title"].([]models.OrgKnowledge)
	require.True(t, ok)
	require.Equal(t, []models.OrgKnowledge{
		{Org: "Acme", Summary: "Une entreprise.", Link: "https://fr.wikipedia.org/wiki/Acme"},
		{Org: "Inconnue"},
		{Org: "Mercure"},
	}, records)
}

func TestTransformErrorSkipsDocument(t *testing.T) {
	tagger := &stubTagger{failOn: "cassé"}
	store := newFakeStore(
		fakeDoc{id: "a", source: models.Document{Title: "Bon titre"}},
		fakeDoc{id: "b", source: models.Document{Title: "Titre cassé"}},
	)
	runner := testRunner(store)

	stats, err := runner.Run(context.Background(), enrich.POSTags(models.FieldTitle, tagger))
	require.NoError(t, err)
	require.Equal(t, 1, stats.Processed)
	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, 1, store.writes)
}

func TestStoreErrorAbortsRun(t *testing.T) {
	store := newFakeStore(fakeDoc{id: "a", source: models.Document{Title: "Un titre"}})
	store.updateErr = errors.New("connection refused")
	runner := testRunner(store)

	_, err := runner.Run(context.Background(), enrich.POSTags(models.FieldTitle, &stubTagger{}))
	require.Error(t, err)
}
