package api

import (
	"pdf-rag/internal/middleware"
	"pdf-rag/internal/notify"

	"github.com/gorilla/mux"
)

func SetupRoutes(h *Handler, wsHandler *notify.WebSocketHandler) *mux.Router {
	r := mux.NewRouter()

	// Middleware runs in order: tracing first, then recovery, then CORS.
	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.ErrorRecoveryMiddleware)
	r.Use(middleware.CORSMiddleware)

	api := r.PathPrefix("/api").Subrouter()

	// Auth
	api.HandleFunc("/auth/login", h.Login).Methods("POST")

	// Users
	api.HandleFunc("/users", h.CreateUser).Methods("POST")
	api.HandleFunc("/users/{id}", h.GetUser).Methods("GET")
	api.HandleFunc("/users/{id}/stats", h.GetUserStats).Methods("GET")

	// Documents
	api.HandleFunc("/users/{id}/documents", h.UploadDocument).Methods("POST")
	api.HandleFunc("/users/{id}/documents", h.ListDocuments).Methods("GET")
	api.HandleFunc("/documents/{id}", h.GetDocument).Methods("GET")
	api.HandleFunc("/documents/{id}", h.UpdateDocument).Methods("PUT")
	api.HandleFunc("/documents/{id}", h.DeleteDocument).Methods("DELETE")
	api.HandleFunc("/documents/{id}/download", h.DownloadDocument).Methods("GET")
	api.HandleFunc("/documents/{id}/view", h.ViewDocument).Methods("GET")

	// RAG
	api.HandleFunc("/rag/query", h.RAGQuery).Methods("POST")

	// Jobs
	api.HandleFunc("/jobs/match", h.MatchJobs).Methods("POST")
	api.HandleFunc("/jobs/search", h.SearchJobs).Methods("GET")
	api.HandleFunc("/jobs/digest", h.RunDigest).Methods("POST")

	// Links
	api.HandleFunc("/users/{id}/links", h.CreateLink).Methods("POST")
	api.HandleFunc("/users/{id}/links", h.ListLinks).Methods("GET")
	api.HandleFunc("/links/{id}", h.UpdateLink).Methods("PUT")
	api.HandleFunc("/links/{id}", h.DeleteLink).Methods("DELETE")

	// Health check endpoint
	api.HandleFunc("/health", h.Health).Methods("GET")

	// WebSocket status feed
	r.HandleFunc("/ws/users/{id}", wsHandler.HandleUserConnection)

	return r
}
