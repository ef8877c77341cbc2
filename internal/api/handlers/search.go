package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"clipquery.app/backend/internal/storage/models"
)

const defaultTopK = 3

type Searcher interface {
	Search(ctx context.Context, videoID string, query string, topK int) []models.SearchMatch
}

type SearchHandler struct {
	engine Searcher
}

func NewSearchHandler(engine Searcher) *SearchHandler {
	return &SearchHandler{engine: engine}
}

// Search finds transcript moments matching a natural-language query within
// one video. An empty result list is a normal outcome, not an error.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" || req.VideoID == "" {
		writeError(w, http.StatusBadRequest, "query and videoId are required")
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	matches := h.engine.Search(r.Context(), req.VideoID, req.Query, topK)
	if matches == nil {
		matches = []models.SearchMatch{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": matches, "count": len(matches)})
}
