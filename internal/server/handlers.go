package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/agbru/fibqpe/internal/errors"
	"github.com/agbru/fibqpe/internal/service"
	"github.com/agbru/fibqpe/pkg/models"
	"github.com/go-chi/chi/v5"
)

// requestError is a query parameter failure with its HTTP status.
type requestError struct {
	Message    string
	StatusCode int
}

func (e requestError) Error() string { return e.Message }

// estimateParams are the parsed query parameters of /estimate.
type estimateParams struct {
	modulus int64
	shots   int
	seed    *uint64
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSONResponse(w, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Unix(),
	})
}

func (s *Server) handleCapacity(w http.ResponseWriter, _ *http.Request) {
	s.writeJSONResponse(w, http.StatusOK, s.service.Capacity())
}

// handleEstimate runs one estimation for ?n=, with optional ?shots= and
// ?seed=, and returns the verified report.
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	params, err := s.parseEstimateParams(r)
	if err != nil {
		var reqErr requestError
		if errors.As(err, &reqErr) {
			s.writeErrorResponse(w, reqErr.StatusCode, reqErr.Message)
		} else {
			s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeouts.RequestTimeout)
	defer cancel()

	result, err := s.service.Estimate(ctx, params.modulus, params.shots, params.seed)
	if errors.Is(err, service.ErrMaxModulusExceeded) {
		s.writeErrorResponse(w, http.StatusBadRequest, maxModulusMessage(s.service))
		return
	}
	if err != nil {
		s.writeErrorResponse(w, statusFor(err), err.Error())
		return
	}
	s.writeJSONResponse(w, http.StatusOK, result)
}

func (s *Server) parseEstimateParams(r *http.Request) (estimateParams, error) {
	q := r.URL.Query()
	var p estimateParams

	nStr := q.Get("n")
	if nStr == "" {
		return p, requestError{Message: "Missing 'n' parameter", StatusCode: http.StatusBadRequest}
	}
	n, err := strconv.ParseInt(nStr, 10, 64)
	if err != nil {
		return p, requestError{Message: "Invalid 'n' parameter: must be an integer", StatusCode: http.StatusBadRequest}
	}
	p.modulus = n

	p.shots = s.cfg.Shots
	if shotsStr := q.Get("shots"); shotsStr != "" {
		shots, err := strconv.Atoi(shotsStr)
		if err != nil || shots <= 0 {
			return p, requestError{Message: "Invalid 'shots' parameter: must be a positive integer", StatusCode: http.StatusBadRequest}
		}
		p.shots = shots
	}

	if seedStr := q.Get("seed"); seedStr != "" {
		seed, err := strconv.ParseUint(seedStr, 10, 64)
		if err != nil {
			return p, requestError{Message: "Invalid 'seed' parameter: must be a non-negative integer", StatusCode: http.StatusBadRequest}
		}
		p.seed = &seed
	}
	return p, nil
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid 'limit' parameter: must be a positive integer")
			return
		}
		limit = l
	}

	runs, err := s.service.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeErrorResponse(w, statusFor(err), err.Error())
		return
	}
	if runs == nil {
		runs = []models.RunSummary{}
	}
	s.writeJSONResponse(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.service.GetRun(r.Context(), id)
	if err != nil {
		s.writeErrorResponse(w, statusFor(err), err.Error())
		return
	}
	s.writeJSONResponse(w, http.StatusOK, run)
}

// statusFor maps service and estimation errors to HTTP status codes.
func statusFor(err error) int {
	var resErr apperrors.ResourceError
	switch {
	case errors.Is(err, service.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrHistoryDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, service.ErrMaxModulusExceeded), errors.Is(err, service.ErrMaxShotsExceeded):
		return http.StatusBadRequest
	case errors.As(err, &resErr):
		return http.StatusUnprocessableEntity
	case apperrors.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONResponse writes data as JSON with the given status code.
func (s *Server) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("Error encoding JSON response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSONResponse(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// maxModulusMessage describes the modulus bound of svc when it exposes one.
func maxModulusMessage(svc service.Service) string {
	if m, ok := svc.(interface{ MaxModulus() uint64 }); ok {
		return fmt.Sprintf("N must not exceed %d", m.MaxModulus())
	}
	return "N exceeds the maximum allowed"
}
