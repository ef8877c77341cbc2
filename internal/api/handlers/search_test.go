package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipquery.app/backend/internal/storage/models"
)

type fakeSearcher struct {
	videoID string
	query   string
	topK    int
	matches []models.SearchMatch
}

func (f *fakeSearcher) Search(_ context.Context, videoID, query string, topK int) []models.SearchMatch {
	f.videoID = videoID
	f.query = query
	f.topK = topK
	return f.matches
}

func TestSearchReturnsMatches(t *testing.T) {
	searcher := &fakeSearcher{matches: []models.SearchMatch{
		{Text: "hello world", StartTime: 1.5, EndTime: 4.0, Confidence: 0.9},
	}}
	handler := NewSearchHandler(searcher)

	req := httptest.NewRequest(http.MethodPost, "/search",
		strings.NewReader(`{"query":"hello","videoId":"v1"}`))
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", searcher.videoID)
	assert.Equal(t, "hello", searcher.query)
	assert.Equal(t, 3, searcher.topK)
	assert.Contains(t, rec.Body.String(), `"count":1`)
	assert.Contains(t, rec.Body.String(), "hello world")
}

func TestSearchHonorsTopK(t *testing.T) {
	searcher := &fakeSearcher{}
	handler := NewSearchHandler(searcher)

	req := httptest.NewRequest(http.MethodPost, "/search",
		strings.NewReader(`{"query":"hello","videoId":"v1","topK":7}`))
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, searcher.topK)
}

func TestSearchEmptyResultIsOK(t *testing.T) {
	handler := NewSearchHandler(&fakeSearcher{})

	req := httptest.NewRequest(http.MethodPost, "/search",
		strings.NewReader(`{"query":"nothing here","videoId":"v1"}`))
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":0`)
	assert.Contains(t, rec.Body.String(), `"results":[]`)
}

func TestSearchRejectsMissingFields(t *testing.T) {
	handler := NewSearchHandler(&fakeSearcher{})

	for _, body := range []string{
		`{"videoId":"v1"}`,
		`{"query":"   ","videoId":"v1"}`,
		`{"query":"hello"}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Search(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}
}
