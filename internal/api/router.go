package api

import (
	"net/http"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"clipquery.app/backend/internal/api/handlers"
	"clipquery.app/backend/internal/api/middleware"
	"clipquery.app/backend/internal/chat"
)

type RouterConfig struct {
	Videos *handlers.VideoHandler
	Upload *handlers.UploadHandler
	Search *handlers.SearchHandler
	Chat   *chat.Handler

	// ServiceAPIKey guards the JSON API when set. The WebSocket and video
	// file routes stay open; browsers cannot attach the header there.
	ServiceAPIKey string
	CORSOrigins   []string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/", rootInfo).Methods(http.MethodGet)
	r.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	r.HandleFunc("/video/{filename}", cfg.Videos.Serve).Methods(http.MethodGet)
	r.HandleFunc("/ws/chat/{video_id}", func(w http.ResponseWriter, req *http.Request) {
		cfg.Chat.Serve(w, req, mux.Vars(req)["video_id"])
	})

	// Protected routes
	protected := r.PathPrefix("").Subrouter()
	if cfg.ServiceAPIKey != "" {
		protected.Use(middleware.APIKey(cfg.ServiceAPIKey))
	}

	protected.HandleFunc("/upload", cfg.Upload.Upload).Methods(http.MethodPost)
	protected.HandleFunc("/get-upload-url", cfg.Upload.GetUploadURL).Methods(http.MethodPost)
	protected.HandleFunc("/complete-upload", cfg.Upload.CompleteUpload).Methods(http.MethodPost)
	protected.HandleFunc("/upload-youtube", cfg.Videos.AddYouTubeVideo).Methods(http.MethodPost)
	protected.HandleFunc("/process", cfg.Videos.Process).Methods(http.MethodPost)
	protected.HandleFunc("/search", cfg.Search.Search).Methods(http.MethodPost)

	videos := protected.PathPrefix("/videos").Subrouter()
	videos.HandleFunc("", cfg.Videos.List).Methods(http.MethodGet)
	videos.HandleFunc("/{id}", cfg.Videos.Get).Methods(http.MethodGet)
	videos.HandleFunc("/{id}/transcript", cfg.Videos.Transcript).Methods(http.MethodGet)

	protected.HandleFunc("/video-url/{filename}", cfg.Videos.VideoURL).Methods(http.MethodGet)

	return ghandlers.CORS(
		ghandlers.AllowedOrigins(cfg.CORSOrigins),
		ghandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		ghandlers.AllowedHeaders([]string{"Content-Type", "X-API-Key"}),
	)(r)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func rootInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"service":"clipquery-backend","status":"running"}`))
}
