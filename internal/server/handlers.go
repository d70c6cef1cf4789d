package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cvclon3/virascope/pkg/search"
	"github.com/cvclon3/virascope/pkg/youtube"
)

// errorEnvelope is the machine-readable error body every denial carries.
type errorEnvelope struct {
	Error struct {
		Code              string `json:"code"`
		Message           string `json:"message"`
		RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, retryAfter int) {
	var env errorEnvelope
	env.Error.Code = code
	env.Error.Message = message
	env.Error.RetryAfterSeconds = retryAfter
	writeJSON(w, status, env)
}

// handleSearchKind builds the GET handler for one search kind.
func (s *Server) handleSearchKind(kind search.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		query := q.Get("query")
		if query == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "query is required", 0)
			return
		}

		maxResults := 50
		if raw := q.Get("max_results"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 50 {
				writeError(w, http.StatusBadRequest, "invalid_request", "max_results must be between 1 and 50", 0)
				return
			}
			maxResults = n
		}

		period, err := search.ParsePeriod(q.Get("date_published"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid value for date_published", 0)
			return
		}

		result, err := s.search.Run(r.Context(), search.Params{
			Query:      query,
			MaxResults: maxResults,
			Period:     period,
			Kind:       kind,
		})
		if err != nil {
			s.writeSearchError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// videosByIDsRequest is the POST /videos/by_ids body.
type videosByIDsRequest struct {
	VideoIDs []string `json:"video_ids"`
}

func (s *Server) handleVideosByIDs(w http.ResponseWriter, r *http.Request) {
	var req videosByIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body", 0)
		return
	}

	result, err := s.search.Lookup(r.Context(), req.VideoIDs)
	if err != nil {
		s.writeSearchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// limitResponse is the caller's own rate-limit state.
type limitResponse struct {
	Limit         int    `json:"limit"`
	Remaining     int    `json:"remaining"`
	WindowSeconds int    `json:"window_seconds"`
	ResetAt       string `json:"reset_at,omitempty"`
}

func (s *Server) handleLimit(w http.ResponseWriter, r *http.Request) {
	u, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing user identity", 0)
		return
	}

	status, err := s.limiter.Status(r.Context(), u.ID, rateLimitAction)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "status_unavailable", "rate limit state is unavailable", 0)
		return
	}

	resp := limitResponse{
		Limit:         status.Limit,
		Remaining:     status.Remaining,
		WindowSeconds: int(status.Window.Seconds()),
	}
	if !status.ResetAt.IsZero() {
		resp.ResetAt = status.ResetAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, resp)
}

// healthResponse reports liveness plus key pool headroom.
type healthResponse struct {
	Status     string `json:"status"`
	Keys       int    `json:"keys,omitempty"`
	UsableKeys int    `json:"usable_keys,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.keys != nil {
		resp.Keys = s.keys.Size()
		resp.UsableKeys = s.keys.UsableCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeSearchError maps aggregator failures onto the HTTP error taxonomy.
func (s *Server) writeSearchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, search.ErrEmptyQuery),
		errors.Is(err, search.ErrNoVideoIDs),
		errors.Is(err, search.ErrTooManyVideoIDs),
		errors.Is(err, search.ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), 0)
		return

	case errors.Is(err, search.ErrCapacityExhausted):
		writeError(w, http.StatusServiceUnavailable, "capacity_exhausted",
			"all search capacity is exhausted, try again later", 0)
		return

	case errors.Is(err, youtube.ErrRetryExhausted):
		writeError(w, http.StatusServiceUnavailable, "upstream_unavailable",
			"upstream API is unavailable", 0)
		return
	}

	var apiErr *youtube.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Class {
		case youtube.ErrorClassBadRequest:
			writeError(w, http.StatusBadRequest, "invalid_request", "upstream rejected the query", 0)
			return
		case youtube.ErrorClassAuth:
			s.logger.Error().Err(err).Msg("upstream rejected an API key")
			writeError(w, http.StatusInternalServerError, "upstream_auth",
				"search backend is misconfigured", 0)
			return
		case youtube.ErrorClassTransient:
			writeError(w, http.StatusServiceUnavailable, "upstream_unavailable",
				"upstream API is unavailable", 0)
			return
		}
	}

	s.logger.Error().Err(err).Msg("search request failed")
	writeError(w, http.StatusInternalServerError, "internal", "internal server error", 0)
}
