package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/erazemk/stash/internal/imaging"
	"github.com/erazemk/stash/internal/model"
)

// GetItems handles GET /api/courses/{courseid}/items.
func (h *StashHandler) GetItems(w http.ResponseWriter, r *http.Request) {
	m, ok := h.course(w, r)
	if !ok {
		return
	}
	items, err := m.GetItems(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// CreateItem handles POST /api/courses/{courseid}/items.
func (h *StashHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	m, ok := h.course(w, r)
	if !ok {
		return
	}
	var req model.ItemInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := m.CreateItem(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item created", "user", GetClaims(r.Context()).Username, "stash", item.StashID, "item", item.ID)
	jsonResponse(w, http.StatusCreated, item)
}

// GetItem handles GET /api/items/{id}.
func (h *StashHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	_, item, err := h.Resolver.ForItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// UpdateItem handles PUT /api/items/{id}.
func (h *StashHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req model.ItemInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, _, err := h.Resolver.ForItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := m.UpdateItem(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/items/{id}. Drops, trade lines and
// holdings of the item go with it.
func (h *StashHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, _, err := h.Resolver.ForItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := m.DeleteItem(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item deleted", "user", GetClaims(r.Context()).Username, "item", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadImage handles PUT /api/items/{id}/image with a multipart "image"
// file.
func (h *StashHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+(64<<10))
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	m, _, err := h.Resolver.ForItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := m.SetItemImage(r.Context(), id, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// GetImage handles GET /api/items/{id}/image.
func (h *StashHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, _, err := h.Resolver.ForItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, mime, err := m.ItemImage(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
