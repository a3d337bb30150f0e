package knowledge_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yberrad/newsgraph/internal/knowledge"
)

func TestLookupParsesSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/rest_v1/page/summary/Airbus", r.URL.Path)

		io.WriteString(w, `{
			"type": "standard",
			"extract": "Airbus est un avionneur européen.",
			"content_urls": {"desktop": {"page": "https://fr.wikipedia.org/wiki/Airbus"}}
		}`)
	}))
	defer srv.Close()

	client := knowledge.NewWikipediaClient(srv.URL, 1)
	summary, err := client.Lookup(context.Background(), "Airbus")
	require.NoError(t, err)
	require.Equal(t, knowledge.Summary{
		Summary: "Airbus est un avionneur européen.",
		Link:    "https://fr.wikipedia.org/wiki/Airbus",
	}, summary)
}

func TestLookupEscapesName(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		io.WriteString(w, `{"type":"standard","extract":"","content_urls":{"desktop":{"page":""}}}`)
	}))
	defer srv.Close()

	client := knowledge.NewWikipediaClient(srv.URL, 1)
	_, err := client.Lookup(context.Background(), "Société générale")
	require.NoError(t, err)
	require.Equal(t, "/api/rest_v1/page/summary/Soci%C3%A9t%C3%A9%20g%C3%A9n%C3%A9rale", gotPath)
}

func TestLookupMissingPageIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"title":"Not found."}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := knowledge.NewWikipediaClient(srv.URL, 1)
	_, err := client.Lookup(context.Background(), "Inconnue")
	require.ErrorIs(t, err, knowledge.ErrNotFound)
}

func TestLookupDisambiguationIsAmbiguous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"type":"disambiguation","extract":"Mercure peut désigner :"}`)
	}))
	defer srv.Close()

	client := knowledge.NewWikipediaClient(srv.URL, 1)
	_, err := client.Lookup(context.Background(), "Mercure")
	require.ErrorIs(t, err, knowledge.ErrAmbiguous)
}
