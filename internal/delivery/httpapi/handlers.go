package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"adcheck/internal/bootstrap/logging"
	domaincheck "adcheck/internal/domain/check"
	"adcheck/internal/errs"
	"adcheck/internal/ports"
	"adcheck/internal/usecase/check"
)

// maxSubmitBody bounds the request body; image input carries a reference,
// never the bytes, so well-formed requests stay far below this.
const maxSubmitBody = 1 << 20

type submitCheckRequest struct {
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id"`
	InputType      string `json:"input_type"`
	Text           string `json:"text,omitempty"`
	ImageRef       string `json:"image_ref,omitempty"`
}

type submitCheckResponse struct {
	CheckID string `json:"check_id"`
	Status  string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSubmitCheck(w http.ResponseWriter, r *http.Request) {
	var req submitCheckRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmitBody))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "リクエスト本文を解析できません。"})
		return
	}

	res, err := s.svc.SubmitCheck(r.Context(), check.SubmitCheckInput{
		OrganizationID: req.OrganizationID,
		UserID:         req.UserID,
		InputType:      req.InputType,
		Text:           req.Text,
		ImageRef:       req.ImageRef,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	// 202: the check is accepted, processing happens asynchronously and
	// callers poll GET /api/checks/{checkID}.
	writeJSON(w, http.StatusAccepted, submitCheckResponse{CheckID: res.CheckID, Status: res.Status})
}

func (s *Server) handleGetCheck(w http.ResponseWriter, r *http.Request) {
	detail, err := s.svc.GetCheck(r.Context(), chi.URLParam(r, "checkID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	detail, err := s.svc.QueueStatus(r.Context(), chi.URLParam(r, "organizationID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domaincheck.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, ports.ErrCheckNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "指定されたチェックが見つかりません。"})
	case errors.Is(err, ports.ErrOrganizationNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "指定された組織が見つかりません。"})
	default:
		logging.Error(r.Context(), "request failed", slog.Any("err", errs.Loggable(err)))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "サーバー内部でエラーが発生しました。"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
