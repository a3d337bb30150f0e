package enrich

import (
	"context"
	"errors"
	"fmt"

	"github.com/yberrad/newsgraph/internal/geocode"
	"github.com/yberrad/newsgraph/internal/knowledge"
	"github.com/yberrad/newsgraph/internal/models"
	"github.com/yberrad/newsgraph/internal/nlp"
	"github.com/yberrad/newsgraph/internal/processing"
)

// Target field name prefixes; the text field name is appended.
const (
	posTagPrefix = "pos_tag_"
	nerPerPrefix = "ner_per_"
	nerOrgPrefix = "ner_org_"
	nerLocPrefix = "ner_loca_"
	wikiPrefix   = "wiki_"
)

// POSTags tags every token of the given text field in source order.
func POSTags(field string, tagger nlp.Tagger) Job {
	return Job{
		Name:  "pos-tags/" + field,
		Field: posTagPrefix + field,
		Process: func(ctx context.Context, doc models.Document) (any, error) {
			text := processing.SanitizeForTagging(doc.TextField(field))
			tags, err := tagger.Tag(ctx, text)
			if err != nil {
				return nil, fmt.Errorf("tag %s: %w", field, err)
			}
			if tags == nil {
				tags = []models.POSTag{}
			}
			return tags, nil
		},
	}
}

// Persons extracts person surface strings from the given text field.
func Persons(field string, tagger nlp.Tagger) Job {
	return entityJob("persons", nerPerPrefix, field, tagger, models.KindPerson)
}

// Organizations extracts organization surface strings from the given text field.
func Organizations(field string, tagger nlp.Tagger) Job {
	return entityJob("organizations", nerOrgPrefix, field, tagger, models.KindOrganization)
}

// entityJob keeps the tagger's order and duplicates; deduplication happens
// downstream where the aggregation semantics require it.
func entityJob(name, prefix, field string, tagger nlp.Tagger, kind models.EntityKind) Job {
	return Job{
		Name:  name + "/" + field,
		Field: prefix + field,
		Process: func(ctx context.Context, doc models.Document) (any, error) {
			entities, err := extractEntities(ctx, tagger, doc.TextField(field))
			if err != nil {
				return nil, err
			}

			names := []string{}
			for _, ent := range entities {
				if ent.Kind == kind {
					names = append(names, ent.Text)
				}
			}
			return names, nil
		},
	}
}

// Locations extracts location mentions and resolves their coordinates. A
// failed or empty geocode lookup degrades to the (-1, -1) sentinel and never
// aborts the document.
func Locations(field string, tagger nlp.Tagger, geocoder geocode.Geocoder) Job {
	return Job{
		Name:  "locations/" + field,
		Field: nerLocPrefix + field,
		Process: func(ctx context.Context, doc models.Document) (any, error) {
			entities, err := extractEntities(ctx, tagger, doc.TextField(field))
			if err != nil {
				return nil, err
			}

			mentions := []models.LocationMention{}
			for _, ent := range entities {
				if ent.Kind != models.KindLocation {
					continue
				}

				mention := models.LocationMention{
					Name:      ent.Text,
					Latitude:  models.UnresolvedCoordinate,
					Longitude: models.UnresolvedCoordinate,
				}
				if point, err := geocoder.Resolve(ctx, ent.Text); err == nil {
					mention.Latitude = point.Latitude
					mention.Longitude = point.Longitude
				}
				mentions = append(mentions, mention)
			}
			return mentions, nil
		},
	}
}

// Knowledge looks up every organization already extracted for the field and
// stores one record per name. Missing and ambiguous pages keep their record
// with empty summary and link.
func Knowledge(field string, base knowledge.Base) Job {
	return Job{
		Name:  "knowledge/" + field,
		Field: wikiPrefix + field,
		Process: func(ctx context.Context, doc models.Document) (any, error) {
			var orgs []string
			if field == models.FieldMessage {
				orgs = doc.NerOrgMessage
			} else {
				orgs = doc.NerOrgTitle
			}

			records := []models.OrgKnowledge{}
			for _, org := range orgs {
				record := models.OrgKnowledge{Org: org}

				summary, err := base.Lookup(ctx, org)
				switch {
				case err == nil:
					record.Summary = summary.Summary
					record.Link = summary.Link
				case errors.Is(err, knowledge.ErrNotFound), errors.Is(err, knowledge.ErrAmbiguous):
					// keep the empty record
				default:
					return nil, fmt.Errorf("lookup %q: %w", org, err)
				}

				records = append(records, record)
			}
			return records, nil
		},
	}
}

func extractEntities(ctx context.Context, tagger nlp.Tagger, raw string) ([]nlp.Entity, error) {
	text := processing.Sanitize(raw)
	entities, err := tagger.Entities(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract entities: %w", err)
	}
	return entities, nil
}
