package router

import (
	"net/http"

	"github.com/BerylCAtieno/letterhead-merger/internal/handlers"
	"github.com/BerylCAtieno/letterhead-merger/internal/middleware"
	"github.com/BerylCAtieno/letterhead-merger/internal/services"
	"github.com/BerylCAtieno/letterhead-merger/internal/utils"

	"github.com/gorilla/mux"
)

func NewRouter(service services.LetterheadService, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))

	h := handlers.NewLetterheadHandler(service, logger)

	// Routes
	api := r.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	// Source pickers
	api.HandleFunc("/letterheads", h.ListLetterheads).Methods(http.MethodGet)
	api.HandleFunc("/bodies", h.ListBodies).Methods(http.MethodGet)

	// Session pipeline
	api.HandleFunc("/sessions", h.StartSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.CloseSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/preview", h.Preview).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/crop", h.Crop).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/signature", h.Signature).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/body", h.GetBody).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/body", h.EditBody).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/generate", h.Generate).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/export", h.Export).Methods(http.MethodPost)

	// CORS wraps the whole router so preflight requests never reach route
	// matching, which would answer them with 405.
	return middleware.CORS()(r)
}
