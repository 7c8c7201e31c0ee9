package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/poiesic/nameres/core"
	"github.com/poiesic/nameres/resolve"
	"github.com/poiesic/nameres/storage"
)

//go:embed docs.html
var docsPage []byte

type errorResponse struct {
	Detail string `json:"detail"`
}

type healthResponse struct {
	Status string `json:"status"`
	resolve.Stats
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	values, err := lookupParams(w, r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: err.Error()})
		return
	}
	q, err := parseQuery(values)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	results, err := s.resolver.Lookup(ctx, q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	stats, err := s.resolver.Stats(ctx)
	if err != nil {
		s.logger.Warn("health check failed", "err", err, "request_id", r.Header.Get(requestIDHeader))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Stats: stats})
}

func (s *Server) handleDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(docsPage)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/docs", http.StatusTemporaryRedirect)
}

// writeError maps a resolver failure onto a status code.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := r.Header.Get(requestIDHeader)
	switch {
	case errors.Is(err, resolve.ErrInvalidLimit), errors.Is(err, resolve.ErrInvalidOffset):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: err.Error()})
	case unavailable(err):
		s.logger.Warn("lookup unavailable", "err", err, "request_id", requestID)
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: "service unavailable, retry later"})
	default:
		s.logger.Error("lookup failed", "err", err, "request_id", requestID)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "internal server error"})
	}
}

func unavailable(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, core.ErrUnavailable) ||
		errors.Is(err, storage.ErrCollectionNotFound) ||
		errors.Is(err, storage.ErrStorageClosed)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
