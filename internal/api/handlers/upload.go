package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clipquery.app/backend/internal/media"
	"clipquery.app/backend/internal/objectstore"
	"clipquery.app/backend/internal/retry"
	"clipquery.app/backend/internal/storage/models"
	"clipquery.app/backend/internal/storage/postgres"
)

type UploadHandler struct {
	videos      *postgres.VideoRepository
	store       *objectstore.Manager // nil when uploads go to local disk
	uploadDir   string
	maxBytes    int64
	maxDuration float64
	log         zerolog.Logger
}

func NewUploadHandler(videos *postgres.VideoRepository, store *objectstore.Manager, uploadDir string, maxBytes int64, maxDuration float64, log zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		videos:      videos,
		store:       store,
		uploadDir:   uploadDir,
		maxBytes:    maxBytes,
		maxDuration: maxDuration,
		log:         log.With().Str("component", "upload").Logger(),
	}
}

// Upload accepts a multipart video file, validates its type, size and
// duration, and stores it under a fresh filename.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		// Multipart parsing reads the capped body, so oversize uploads
		// surface here rather than during the copy below.
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if !strings.HasPrefix(header.Header.Get("Content-Type"), "video/") {
		writeError(w, http.StatusBadRequest, "only video files are accepted")
		return
	}

	filename := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))

	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(filename))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not store upload")
		return
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, file)
	tmp.Close()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		h.log.Error().Err(err).Msg("spooling upload failed")
		writeError(w, http.StatusInternalServerError, "could not store upload")
		return
	}

	var duration *float64
	if d, ok := media.ProbeDuration(r.Context(), tmp.Name()); ok {
		if d > h.maxDuration {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("video is %.0fs long, maximum is %.0fs", d, h.maxDuration))
			return
		}
		duration = &d
	}

	filePath, err := h.persist(r, tmp.Name(), filename)
	if err != nil {
		h.log.Error().Err(err).Str("filename", filename).Msg("storing upload failed")
		writeError(w, http.StatusInternalServerError, "could not store upload")
		return
	}

	video := &models.Video{
		Filename:     filename,
		OriginalName: header.Filename,
		FilePath:     filePath,
		FileSize:     size,
		Duration:     duration,
		Status:       models.StatusUploaded,
		VideoType:    models.TypeUploaded,
	}
	if err := h.videos.Create(r.Context(), video); err != nil {
		writeError(w, http.StatusInternalServerError, "could not save video record")
		return
	}

	h.log.Info().Str("video_id", video.ID).Int64("bytes", size).Msg("video uploaded")
	writeJSON(w, http.StatusCreated, video)
}

func (h *UploadHandler) persist(r *http.Request, tmpPath, filename string) (string, error) {
	if h.store != nil {
		content, err := os.ReadFile(tmpPath)
		if err != nil {
			return "", err
		}
		err = retry.Do(r.Context(), h.log, "s3 upload", func() error {
			return h.store.Upload(r.Context(), filename, content)
		})
		if err != nil {
			return "", err
		}
		return h.store.ObjectPath(filename), nil
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(h.uploadDir, filename)
	if err := os.Rename(tmpPath, dest); err != nil {
		// Rename fails across filesystems; fall back to a copy.
		if copyErr := copyFile(tmpPath, dest); copyErr != nil {
			return "", copyErr
		}
	}
	return dest, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

type uploadURLRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type uploadURLResponse struct {
	UploadURL *objectstore.PresignedUpload `json:"upload"`
	Filename  string                       `json:"filename"`
}

// GetUploadURL hands out a presigned S3 POST so large files skip this
// service entirely. Requires S3 storage.
func (h *UploadHandler) GetUploadURL(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "direct uploads are not configured")
		return
	}

	var req uploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Filename == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}
	if !strings.HasPrefix(req.ContentType, "video/") {
		writeError(w, http.StatusBadRequest, "only video files are accepted")
		return
	}

	filename := uuid.NewString() + strings.ToLower(filepath.Ext(req.Filename))

	var presigned *objectstore.PresignedUpload
	err := retry.Do(r.Context(), h.log, "presign upload", func() error {
		var err error
		presigned, err = h.store.PresignUpload(r.Context(), filename, req.ContentType)
		return err
	})
	if err != nil {
		h.log.Error().Err(err).Msg("presigning upload failed")
		writeError(w, http.StatusInternalServerError, "could not create upload url")
		return
	}

	writeJSON(w, http.StatusOK, uploadURLResponse{UploadURL: presigned, Filename: filename})
}

type completeUploadRequest struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	FileSize     int64  `json:"fileSize"`
}

// CompleteUpload registers a video after the client finished a presigned
// upload, verifying the object actually landed in the bucket.
func (h *UploadHandler) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "direct uploads are not configured")
		return
	}

	var req completeUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Filename == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	var exists bool
	err := retry.Do(r.Context(), h.log, "verify upload", func() error {
		var err error
		exists, err = h.store.Exists(r.Context(), req.Filename)
		return err
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not verify upload")
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "uploaded file not found in storage")
		return
	}

	originalName := req.OriginalName
	if originalName == "" {
		originalName = req.Filename
	}
	video := &models.Video{
		Filename:     req.Filename,
		OriginalName: originalName,
		FilePath:     h.store.ObjectPath(req.Filename),
		FileSize:     req.FileSize,
		Status:       models.StatusUploaded,
		VideoType:    models.TypeUploaded,
	}
	if err := h.videos.Create(r.Context(), video); err != nil {
		writeError(w, http.StatusInternalServerError, "could not save video record")
		return
	}

	h.log.Info().Str("video_id", video.ID).Msg("presigned upload completed")
	writeJSON(w, http.StatusCreated, video)
}
