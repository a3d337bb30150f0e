package models

import "time"

// Text field names present on every document. Enrichment jobs run once per
// text field and derive their target field name from these.
const (
	FieldTitle   = "title"
	FieldMessage = "message"
)

// Sentinel coordinate stored when a location name could not be geocoded.
const UnresolvedCoordinate = -1

// Document is the canonical structure stored in Elasticsearch. The derived
// fields are absent until the corresponding enrichment job has processed the
// document; once written they are never overwritten.
type Document struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Published time.Time `json:"published"`
	Feed      string    `json:"Feed,omitempty"`
	Link      string    `json:"link,omitempty"`

	PosTagTitle   []POSTag `json:"pos_tag_title,omitempty"`
	PosTagMessage []POSTag `json:"pos_tag_message,omitempty"`

	NerPerTitle   []string `json:"ner_per_title,omitempty"`
	NerPerMessage []string `json:"ner_per_message,omitempty"`

	NerOrgTitle   []string `json:"ner_org_title,omitempty"`
	NerOrgMessage []string `json:"ner_org_message,omitempty"`

	NerLocaTitle   []LocationMention `json:"ner_loca_title,omitempty"`
	NerLocaMessage []LocationMention `json:"ner_loca_message,omitempty"`

	WikiTitle   []OrgKnowledge `json:"wiki_title,omitempty"`
	WikiMessage []OrgKnowledge `json:"wiki_message,omitempty"`
}

// TextField returns the raw text stored under the given field name.
func (d Document) TextField(field string) string {
	if field == FieldMessage {
		return d.Message
	}
	return d.Title
}

// POSTag is one (token, grammatical tag) pair; sequences preserve token order.
type POSTag struct {
	Token string `json:"token"`
	Tag   string `json:"pos_tag"`
}

// LocationMention is a location surface string with its resolved coordinates,
// or (-1, -1) when geocoding found no match.
type LocationMention struct {
	Name      string  `json:"loc"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Resolved reports whether the mention carries real coordinates.
func (m LocationMention) Resolved() bool {
	return m.Latitude != UnresolvedCoordinate && m.Longitude != UnresolvedCoordinate
}

// OrgKnowledge is a knowledge-base summary for one organization name. Summary
// and Link stay empty when the lookup found nothing or was ambiguous.
type OrgKnowledge struct {
	Org     string `json:"org"`
	Summary string `json:"info"`
	Link    string `json:"link,omitempty"`
}

// EntityKind labels entities produced by the NLP capability.
type EntityKind string

const (
	KindPerson       EntityKind = "person"
	KindOrganization EntityKind = "organization"
	KindLocation     EntityKind = "location"
)
