package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cryptodash/internal/alert"
	"cryptodash/internal/domain"
	"cryptodash/internal/service"
	"cryptodash/internal/settings"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func filtersFromQuery(r *http.Request) service.Filters {
	q := r.URL.Query()
	f := service.Filters{
		Search:    q.Get("search"),
		Variation: q.Get("variation"),
		OrderBy:   q.Get("order_by"),
		Direction: q.Get("direction"),
	}
	if v := q.Get("min_price"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			f.MinPrice = &d
		}
	}
	if v := q.Get("max_price"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			f.MaxPrice = &d
		}
	}
	return f
}

func (s *Server) handleListCryptos(w http.ResponseWriter, r *http.Request) {
	batch := s.market.GetCurrentBatch(r.Context(), filtersFromQuery(r))
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleCryptoDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	detail, err := s.market.GetDetail(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handlePriceChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			writeError(w, http.StatusBadRequest, "days must be an integer between 1 and 365")
			return
		}
		days = n
	}
	writeJSON(w, http.StatusOK, s.market.GetPriceChart(r.Context(), id, days))
}

func (s *Server) handleExchangeRates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	base := q.Get("base")
	if base == "" {
		base = "usd"
	}
	var ids []string
	for _, part := range strings.Split(q.Get("ids"), ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	rates, err := s.market.GetExchangeRates(r.Context(), base, ids...)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, rates)
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.market.Favorites(r.Context()))
}

func (s *Server) handleFavoriteIDs(w http.ResponseWriter, r *http.Request) {
	ids := s.market.FavoriteIDs()
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.market.AddFavorite(id) {
		writeError(w, http.StatusBadRequest, "invalid or already favorite id")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.market.RemoveFavorite(id) {
		writeError(w, http.StatusNotFound, "not a favorite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Direction is a pointer so an absent field is distinguishable from the
// zero-value direction and can be rejected.
type createAlertRequest struct {
	CryptoID    string                 `json:"crypto_id"`
	TargetPrice decimal.Decimal        `json:"target_price"`
	Direction   *domain.AlertDirection `json:"direction"`
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.alerts.Active())
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Direction == nil {
		writeError(w, http.StatusBadRequest, `direction is required ("max" or "min")`)
		return
	}

	created, err := s.alerts.Add(domain.Alert{
		CryptoID:    req.CryptoID,
		TargetPrice: req.TargetPrice,
		Direction:   *req.Direction,
	})
	if err != nil {
		if errors.Is(err, alert.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "could not register alert")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid alert id")
		return
	}
	if !s.alerts.Remove(id) {
		writeError(w, http.StatusNotFound, "no such alert")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAlertHistory(w http.ResponseWriter, r *http.Request) {
	history := s.alerts.History()
	if history == nil {
		history = []domain.AlertHistory{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Get())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var next settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	applied, err := s.settings.Update(next)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, applied)
}

func (s *Server) handleResetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Reset())
}
