package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/stash/internal/model"
)

type hashCodeRequest struct {
	HashCode string `json:"hashcode"`
}

type pickupResponse struct {
	Allowed      bool           `json:"allowed"`
	Reason       string         `json:"reason,omitempty"`
	NextPickupAt *int64         `json:"next_pickup_at,omitempty"`
	UserItem     model.UserItem `json:"user_item"`
}

// ListDrops handles GET /api/courses/{courseid}/drops, optionally filtered
// with ?item=ID.
func (h *StashHandler) ListDrops(w http.ResponseWriter, r *http.Request) {
	m, ok := h.course(w, r)
	if !ok {
		return
	}
	itemID, ok := queryID(w, r, "item")
	if !ok {
		return
	}

	drops, err := m.ListDrops(r.Context(), itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if drops == nil {
		drops = []model.Drop{}
	}
	jsonResponse(w, http.StatusOK, drops)
}

// CreateDrop handles POST /api/courses/{courseid}/drops.
func (h *StashHandler) CreateDrop(w http.ResponseWriter, r *http.Request) {
	m, ok := h.course(w, r)
	if !ok {
		return
	}
	var req model.DropInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := m.CreateDrop(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("drop created", "user", GetClaims(r.Context()).Username, "stash", d.StashID, "drop", d.ID)
	jsonResponse(w, http.StatusCreated, d)
}

// FindDrop handles GET /api/courses/{courseid}/drops/lookup?prefix=abc.
func (h *StashHandler) FindDrop(w http.ResponseWriter, r *http.Request) {
	m, ok := h.course(w, r)
	if !ok {
		return
	}
	d, err := m.FindDropByPrefix(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, d)
}

// GetDrop handles GET /api/drops/{id}.
func (h *StashHandler) GetDrop(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	_, d, err := h.Resolver.ForDrop(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, d)
}

// UpdateDrop handles PUT /api/drops/{id}.
func (h *StashHandler) UpdateDrop(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req model.DropInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, _, err := h.Resolver.ForDrop(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := m.UpdateDrop(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, d)
}

// DeleteDrop handles DELETE /api/drops/{id}.
func (h *StashHandler) DeleteDrop(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, _, err := h.Resolver.ForDrop(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := m.DeleteDrop(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("drop deleted", "user", GetClaims(r.Context()).Username, "drop", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "drop deleted"})
}

// DropSnippet handles GET /api/drops/{id}/snippet?label=text.
func (h *StashHandler) DropSnippet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, _, err := h.Resolver.ForDrop(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	code, err := m.DropSnippet(r.Context(), id, r.URL.Query().Get("label"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"snippet": code})
}

// IsDropVisible handles GET /api/drops/{id}/visible?hashcode=abc123.
func (h *StashHandler) IsDropVisible(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, _, err := h.Resolver.ForDrop(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	visible, err := m.IsDropVisible(r.Context(), GetClaims(r.Context()).UserID, id, r.URL.Query().Get("hashcode"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]bool{"visible": visible})
}

// PickupDrop handles POST /api/drops/{id}/pickup. A refused pickup is a 200
// with allowed set to false.
func (h *StashHandler) PickupDrop(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req hashCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, _, err := h.Resolver.ForDrop(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := m.PickupDrop(r.Context(), GetClaims(r.Context()).UserID, id, req.HashCode)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, pickupResponse{
		Allowed:      res.Allowed,
		Reason:       res.Reason,
		NextPickupAt: res.NextPickupAt,
		UserItem:     res.UserItem,
	})
}
