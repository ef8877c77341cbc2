package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"clipquery.app/backend/internal/objectstore"
	"clipquery.app/backend/internal/processing"
	"clipquery.app/backend/internal/storage/models"
	"clipquery.app/backend/internal/storage/postgres"
	"clipquery.app/backend/internal/youtube"
)

type VideoHandler struct {
	videos      *postgres.VideoRepository
	segments    *postgres.SegmentRepository
	processor   *processing.Processor
	info        *youtube.InfoClient
	store       *objectstore.Manager // nil for local storage
	uploadDir   string
	maxDuration float64
	log         zerolog.Logger
}

func NewVideoHandler(
	videos *postgres.VideoRepository,
	segments *postgres.SegmentRepository,
	processor *processing.Processor,
	info *youtube.InfoClient,
	store *objectstore.Manager,
	uploadDir string,
	maxDuration float64,
	log zerolog.Logger,
) *VideoHandler {
	return &VideoHandler{
		videos:      videos,
		segments:    segments,
		processor:   processor,
		info:        info,
		store:       store,
		uploadDir:   uploadDir,
		maxDuration: maxDuration,
		log:         log.With().Str("component", "videos").Logger(),
	}
}

type youtubeRequest struct {
	URL string `json:"url"`
}

// AddYouTubeVideo registers a YouTube video by URL. Re-submitting a known
// video returns the existing record instead of creating a duplicate.
func (h *VideoHandler) AddYouTubeVideo(w http.ResponseWriter, r *http.Request) {
	var req youtubeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	youtubeID, ok := models.ExtractYouTubeID(req.URL)
	if !ok {
		writeError(w, http.StatusBadRequest, "not a recognizable YouTube URL")
		return
	}

	if existing, err := h.videos.GetByYouTubeID(r.Context(), youtubeID); err == nil {
		writeJSON(w, http.StatusOK, existing)
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusInternalServerError, "could not look up video")
		return
	}

	info := h.info.VideoInfo(r.Context(), youtubeID)
	if info.Duration != nil && *info.Duration > h.maxDuration {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("video is %.0fs long, maximum is %.0fs", *info.Duration, h.maxDuration))
		return
	}

	video := &models.Video{
		Filename:     youtubeID + ".youtube",
		OriginalName: info.Title,
		FilePath:     "youtube://" + youtubeID,
		Duration:     info.Duration,
		Status:       models.StatusUploaded,
		VideoType:    models.TypeYouTube,
		YouTubeID:    &youtubeID,
	}
	if err := h.videos.Create(r.Context(), video); err != nil {
		writeError(w, http.StatusInternalServerError, "could not save video record")
		return
	}

	h.log.Info().Str("video_id", video.ID).Str("youtube_id", youtubeID).Msg("youtube video added")
	writeJSON(w, http.StatusCreated, video)
}

// Process runs the transcript pipeline for one video synchronously.
func (h *VideoHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req models.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VideoID == "" {
		writeError(w, http.StatusBadRequest, "videoId is required")
		return
	}

	result, err := h.processor.Process(r.Context(), req.VideoID)
	switch {
	case errors.Is(err, processing.ErrVideoNotFound):
		writeError(w, http.StatusNotFound, "video not found")
		return
	case errors.Is(err, processing.ErrAlreadyProcessing):
		writeError(w, http.StatusConflict, "video is already being processed")
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	videos, err := h.videos.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list videos")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"videos": videos, "count": len(videos)})
}

func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	video, err := h.videos.Get(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load video")
		return
	}
	writeJSON(w, http.StatusOK, video)
}

// Transcript returns the stored segments for a processed video in
// chronological order.
func (h *VideoHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	videoID := mux.Vars(r)["id"]

	if _, err := h.videos.Get(r.Context(), videoID); errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "video not found")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load video")
		return
	}

	segments, err := h.segments.ListByVideo(r.Context(), videoID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load transcript")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"segments": segments, "count": len(segments)})
}

// VideoURL resolves where the client should play a video from: a YouTube
// embed, the public S3 URL, or this service's local file route.
func (h *VideoHandler) VideoURL(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	video, err := h.videos.GetByFilename(r.Context(), filename)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load video")
		return
	}

	var videoURL string
	switch {
	case video.VideoType == models.TypeYouTube && video.YouTubeID != nil:
		videoURL = "https://www.youtube.com/embed/" + *video.YouTubeID
	case h.store != nil:
		videoURL = h.store.PublicURL(video.Filename)
	default:
		videoURL = "/video/" + video.Filename
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"videoUrl":  videoURL,
		"videoType": video.VideoType,
	})
}

// Serve streams a locally stored video file. S3-backed deployments redirect
// to the public object URL instead.
func (h *VideoHandler) Serve(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	if filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	if h.store != nil {
		http.Redirect(w, r, h.store.PublicURL(filename), http.StatusSeeOther)
		return
	}

	http.ServeFile(w, r, filepath.Join(h.uploadDir, filename))
}
