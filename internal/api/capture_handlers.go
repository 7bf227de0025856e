package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/webroll/webroll/internal/capture"
)

type createCaptureRequest struct {
	URL string `json:"url"`
}

type monitorRequest struct {
	UUID string `json:"uuid"`
}

type createBatchRequest struct {
	URLs []string `json:"urls"`
}

type monitorCaptureResponse struct {
	Result   string         `json:"result"`
	Progress capture.Status `json:"progress"`
	Capture  capture.Record `json:"capture"`
}

type monitorBatchResponse struct {
	Result   string `json:"result"`
	Total    int    `json:"total"`
	Complete int    `json:"complete"`
	Failed   int    `json:"failed"`
	Pending  int    `json:"pending"`
}

func validCaptureURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (s *Server) createCapture(w http.ResponseWriter, r *http.Request) {
	var req createCaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !validCaptureURL(req.URL) {
		writeResult(w, http.StatusBadRequest, resultInvalidURL)
		return
	}

	id, err := s.coordinator.Dispatch(r.Context(), req.URL, userID(r.Context()), "")
	if err != nil {
		if errors.Is(err, capture.ErrNoWorkers) {
			writeResult(w, http.StatusServiceUnavailable, resultNoWorkers)
			return
		}
		s.logger.Error("POST /capture/create: dispatch",
			zap.Int64("user_id", userID(r.Context())),
			zap.Error(err),
		)
		writeResult(w, http.StatusInternalServerError, resultUnexpectedError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"uuid": id})
}

func (s *Server) monitorCapture(w http.ResponseWriter, r *http.Request) {
	var req monitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UUID == "" {
		writeResult(w, http.StatusNotFound, resultNoSuchCapture)
		return
	}
	rec, err := s.coordinator.Status(req.UUID)
	if err != nil {
		writeResult(w, http.StatusNotFound, resultNoSuchCapture)
		return
	}
	writeJSON(w, http.StatusOK, monitorCaptureResponse{
		Result:   resultCapturing,
		Progress: rec.Status,
		Capture:  rec,
	})
}

func (s *Server) createBatch(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.URLs) == 0 {
		writeResult(w, http.StatusBadRequest, resultInvalidURL)
		return
	}
	for _, raw := range req.URLs {
		if !validCaptureURL(raw) {
			writeResult(w, http.StatusBadRequest, resultInvalidURL)
			return
		}
	}

	id, err := s.batches.DispatchBatch(r.Context(), req.URLs, userID(r.Context()))
	if err != nil {
		if errors.Is(err, capture.ErrNoWorkers) {
			writeResult(w, http.StatusServiceUnavailable, resultNoWorkers)
			return
		}
		s.logger.Error("POST /batch/create: dispatch",
			zap.Int64("user_id", userID(r.Context())),
			zap.Error(err),
		)
		writeResult(w, http.StatusInternalServerError, resultUnexpectedError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"uuid": id})
}

func (s *Server) monitorBatch(w http.ResponseWriter, r *http.Request) {
	var req monitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UUID == "" {
		writeResult(w, http.StatusNotFound, resultNoSuchBatch)
		return
	}
	status, err := s.batches.Status(req.UUID)
	if err != nil {
		writeResult(w, http.StatusNotFound, resultNoSuchBatch)
		return
	}
	writeJSON(w, http.StatusOK, monitorBatchResponse{
		Result:   resultCapturing,
		Total:    status.Total,
		Complete: status.Complete,
		Failed:   status.Failed,
		Pending:  status.Pending,
	})
}
