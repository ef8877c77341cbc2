package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUploadHandler(maxBytes int64) *UploadHandler {
	return NewUploadHandler(nil, nil, "uploads", maxBytes, 180, zerolog.Nop())
}

func multipartVideoRequest(t *testing.T, contentType string, payload []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="clip.mp4"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadRejectsOversizeBody(t *testing.T) {
	handler := newTestUploadHandler(256)
	req := multipartVideoRequest(t, "video/mp4", bytes.Repeat([]byte("x"), 4096))
	rec := httptest.NewRecorder()

	handler.Upload(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "upload exceeds size limit")
}

func TestUploadRejectsNonVideoContentType(t *testing.T) {
	handler := newTestUploadHandler(1 << 20)
	req := multipartVideoRequest(t, "application/pdf", []byte("not a video"))
	rec := httptest.NewRecorder()

	handler.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "only video files are accepted")
}

func TestUploadRequiresFileField(t *testing.T) {
	handler := newTestUploadHandler(1 << 20)
	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(nil))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=empty")
	rec := httptest.NewRecorder()

	handler.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
