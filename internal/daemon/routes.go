package daemon

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func (d *Daemon) newRouter() http.Handler {
	r := mux.NewRouter()
	r.Use(d.requestMiddleware)

	r.HandleFunc("/health", d.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware(d.cfg.Server.APIToken))
	api.HandleFunc("/download/{kind:video|audio|transcript}/{id}", d.handleArtifact).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/jobs/{id}", d.handleJob).Methods(http.MethodGet)

	// Every POST entry point consumes one unit of the daily quota.
	post := api.Methods(http.MethodPost).Subrouter()
	post.Use(d.quotaMiddleware)
	post.HandleFunc("/download", d.handleDownload)
	post.HandleFunc("/extract-audio/{id}", d.handleExtractAudio)
	post.HandleFunc("/transcribe/{id}", d.handleTranscribe)
	post.HandleFunc("/process", d.handleProcess)
	post.HandleFunc("/clone-voice/{id}", d.handleCloneVoice)
	post.HandleFunc("/text-to-speech/{voiceId}", d.handleTextToSpeech)

	if dir := strings.TrimSpace(d.cfg.Paths.PublicDir); dir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(dir))).Methods(http.MethodGet, http.MethodHead)
	} else {
		r.HandleFunc("/", d.handleIndex).Methods(http.MethodGet)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: d.cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", requestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
	})
	return c.Handler(r)
}
