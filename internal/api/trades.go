package api

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/erazemk/stash/internal/model"
)

// ListTrades handles GET /api/courses/{courseid}/trades.
func (h *StashHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	m, ok := h.course(w, r)
	if !ok {
		return
	}
	trades, err := m.ListTrades(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	jsonResponse(w, http.StatusOK, trades)
}

// CreateTrade handles POST /api/courses/{courseid}/trades.
func (h *StashHandler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	m, ok := h.course(w, r)
	if !ok {
		return
	}
	var req model.TradeInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := m.CreateTrade(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("trade created", "user", GetClaims(r.Context()).Username, "stash", t.StashID, "trade", t.ID)
	jsonResponse(w, http.StatusCreated, t)
}

// FindTrade handles GET /api/courses/{courseid}/trades/lookup?prefix=abc.
func (h *StashHandler) FindTrade(w http.ResponseWriter, r *http.Request) {
	m, ok := h.course(w, r)
	if !ok {
		return
	}
	t, err := m.FindTradeByPrefix(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, t)
}

// GetTrade handles GET /api/trades/{id}.
func (h *StashHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	_, t, err := h.Resolver.ForTrade(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, t)
}

// UpdateTrade handles PUT /api/trades/{id}.
func (h *StashHandler) UpdateTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req model.TradeInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, _, err := h.Resolver.ForTrade(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := m.UpdateTrade(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, t)
}

// DeleteTrade handles DELETE /api/trades/{id}.
func (h *StashHandler) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, _, err := h.Resolver.ForTrade(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := m.DeleteTrade(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("trade deleted", "user", GetClaims(r.Context()).Username, "trade", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "trade deleted"})
}

// GetTradeItems handles GET /api/trades/{id}/items.
func (h *StashHandler) GetTradeItems(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, _, err := h.Resolver.ForTrade(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := m.GetTradeItems(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.TradeItem{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// AddTradeItem handles POST /api/trades/{id}/items.
func (h *StashHandler) AddTradeItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req model.TradeItemInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, _, err := h.Resolver.ForTrade(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ti, err := m.AddTradeItem(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, ti)
}

// DeleteTradeItem handles DELETE /api/trades/{id}/items/{itemid}, where
// itemid is the id of the trade line.
func (h *StashHandler) DeleteTradeItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(w, r, "itemid")
	if !ok {
		return
	}

	m, _, err := h.Resolver.ForTrade(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	lines, err := m.GetTradeItems(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !slices.ContainsFunc(lines, func(l model.TradeItem) bool { return l.ID == lineID }) {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}

	if err := m.DeleteTradeItem(r.Context(), lineID); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "trade item deleted"})
}

// CanTrade handles GET /api/trades/{id}/eligibility.
func (h *StashHandler) CanTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, _, err := h.Resolver.ForTrade(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dec, err := m.CanTrade(r.Context(), GetClaims(r.Context()).UserID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, dec)
}

// CompleteTrade handles POST /api/trades/{id}/complete. A refused trade is
// a 200 with allowed set to false.
func (h *StashHandler) CompleteTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req hashCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, _, err := h.Resolver.ForTrade(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := m.CompleteTrade(r.Context(), GetClaims(r.Context()).UserID, id, req.HashCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res.Gained == nil {
		res.Gained = []model.ItemChange{}
	}
	if res.Lost == nil {
		res.Lost = []model.ItemChange{}
	}
	jsonResponse(w, http.StatusOK, res)
}
