package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/ingest"
	"github.com/Veraticus/runway/internal/model"
	"github.com/Veraticus/runway/internal/projection"
)

// ImportResponse reports the outcome of a statement upload.
type ImportResponse struct {
	Received int `json:"received"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// SettingsRequest is the body of PUT /users/{userID}/settings.
type SettingsRequest struct {
	PaycheckAmount *decimal.Decimal `json:"paycheck_amount"`
	BonusAmount    *decimal.Decimal `json:"bonus_amount"`
	NextBonusDate  *string          `json:"next_bonus_date"`
	CurrentBalance decimal.Decimal  `json:"current_balance"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// importTransactions reads a CSV statement body, or OFX when ?format=ofx.
func (s *Server) importTransactions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var reader ingest.Reader
	switch format := strings.ToLower(r.URL.Query().Get("format")); format {
	case "", "csv":
		reader = ingest.NewCSVReader(s.logger)
	case "ofx", "qfx":
		reader = ingest.NewOFXReader(s.logger)
	default:
		s.writeError(w, r, fmt.Errorf("%w: %s", ingest.ErrUnsupportedFormat, format))
		return
	}

	result, err := reader.Read(r.Context(), http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	inserted, err := s.analyzer.Import(r.Context(), userID, result.Transactions)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, ImportResponse{
		Received: len(result.Transactions),
		Inserted: inserted,
		Skipped:  result.Skipped,
	})
}

func (s *Server) getPatterns(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.analyzer.Analyze(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis.Patterns)
}

func (s *Server) getIncome(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.analyzer.Analyze(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis.Income)
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	result, err := s.analyzer.Health(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.analyzer.Settings(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	settings := &model.UserFinancialSettings{
		UserID:         chi.URLParam(r, "userID"),
		CurrentBalance: req.CurrentBalance,
		PaycheckAmount: req.PaycheckAmount,
		BonusAmount:    req.BonusAmount,
	}
	if req.NextBonusDate != nil && strings.TrimSpace(*req.NextBonusDate) != "" {
		date, err := projection.ParseBonusDate(*req.NextBonusDate)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		settings.NextBonusDate = &date
	}

	if err := s.analyzer.UpdateSettings(r.Context(), settings); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

var errBadRequest = errors.New("bad request")

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var settingsErr *common.SettingsError
	status := http.StatusInternalServerError
	body := errorResponse{Error: "internal error"}

	switch {
	case errors.As(err, &settingsErr):
		status = http.StatusBadRequest
		body = errorResponse{Error: err.Error(), Field: settingsErr.Field}
	case errors.Is(err, errBadRequest), errors.Is(err, ingest.ErrUnsupportedFormat):
		status = http.StatusBadRequest
		body.Error = err.Error()
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
		body.Error = "not found"
	case errors.Is(err, common.ErrInsufficientData):
		status = http.StatusUnprocessableEntity
		body.Error = err.Error()
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
