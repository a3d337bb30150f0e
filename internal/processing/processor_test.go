package processing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yberrad/newsgraph/internal/processing"
)

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "no markup", input: "plain text", want: "plain text"},
		{name: "tags", input: "<b>Lyon</b> accueille", want: " Lyon  accueille"},
		{name: "entities", input: "march&eacute; &amp; co", want: "marché & co"},
		{name: "nested tags", input: "<div><p>texte</p></div>", want: " texte "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.StripMarkup(tt.input))
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "collapse whitespace", input: "foo\n\nbar\t baz", want: "foo bar baz"},
		{name: "carriage returns", input: "ligne\r\nsuivante", want: "ligne suivante"},
		{name: "markup and breaks", input: "<p>Un  titre</p>\n<p>suite</p>", want: "Un titre suite"},
		{name: "hyphen preserved", input: "Saint-Étienne", want: "Saint-Étienne"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.Sanitize(tt.input))
		})
	}
}

func TestSanitizeForTagging(t *testing.T) {
	require.Equal(t, "Saint Étienne en tête", processing.SanitizeForTagging("Saint-Étienne  en\ttête"))
	require.Equal(t, "", processing.SanitizeForTagging("  \n\t "))
}
