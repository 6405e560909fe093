package api

import (
	"net/http"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// API routes with method-specific routing
	mux.HandleFunc("GET /api/search", s.HandleSearch)
	mux.HandleFunc("POST /api/translate", s.HandleTranslate)
	mux.HandleFunc("GET /api/validate", s.HandleValidate)
	mux.HandleFunc("GET /api/history", s.HandleHistory)
	mux.HandleFunc("DELETE /api/history", s.HandleHistoryDelete)
	mux.HandleFunc("GET /api/notices", s.HandleNotices)
	mux.HandleFunc("GET /health", s.HandleHealth)
}
