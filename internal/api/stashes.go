package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/stash/internal/events"
	"github.com/erazemk/stash/internal/manager"
	"github.com/erazemk/stash/internal/model"
)

// StashHandler handles the endpoints of course stashes and everything in
// them. Each request resolves its own Manager.
type StashHandler struct {
	Resolver *manager.Resolver
	Hub      *events.Hub
}

type stashRequest struct {
	Name string `json:"name"`
}

// course resolves the manager of the {courseid} path value, writing the
// error response when it cannot.
func (h *StashHandler) course(w http.ResponseWriter, r *http.Request) (*manager.Manager, bool) {
	courseID, ok := pathID(w, r, "courseid")
	if !ok {
		return nil, false
	}
	m, err := h.Resolver.ForCourse(r.Context(), courseID)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return m, true
}

// CreateStash handles POST /api/courses/{courseid}/stash.
func (h *StashHandler) CreateStash(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "courseid")
	if !ok {
		return
	}
	var req stashRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.Resolver.CreateStash(r.Context(), model.StashInput{CourseID: courseID, Name: req.Name})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("stash created", "user", GetClaims(r.Context()).Username, "course", courseID, "stash", m.Stash().ID)
	jsonResponse(w, http.StatusCreated, m.Stash())
}

// GetStash handles GET /api/courses/{courseid}/stash.
func (h *StashHandler) GetStash(w http.ResponseWriter, r *http.Request) {
	m, ok := h.course(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, m.Stash())
}

// UpdateStash handles PUT /api/courses/{courseid}/stash.
func (h *StashHandler) UpdateStash(w http.ResponseWriter, r *http.Request) {
	m, ok := h.course(w, r)
	if !ok {
		return
	}
	var req stashRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := m.UpdateStash(r.Context(), req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, m.Stash())
}

// MyInventory handles GET /api/courses/{courseid}/inventory.
func (h *StashHandler) MyInventory(w http.ResponseWriter, r *http.Request) {
	m, ok := h.course(w, r)
	if !ok {
		return
	}
	h.inventory(w, r, m, GetClaims(r.Context()).UserID)
}

// UserInventory handles GET /api/courses/{courseid}/users/{userid}/inventory.
func (h *StashHandler) UserInventory(w http.ResponseWriter, r *http.Request) {
	m, ok := h.course(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userid")
	if !ok {
		return
	}
	h.inventory(w, r, m, userID)
}

func (h *StashHandler) inventory(w http.ResponseWriter, r *http.Request, m *manager.Manager, userID int64) {
	items, err := m.Inventory(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.UserItem{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Events handles GET /api/courses/{courseid}/events?limit=N.
func (h *StashHandler) Events(w http.ResponseWriter, r *http.Request) {
	m, ok := h.course(w, r)
	if !ok {
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	evs, err := m.Events(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if evs == nil {
		evs = []model.Event{}
	}
	jsonResponse(w, http.StatusOK, evs)
}

// LiveEvents handles GET /api/courses/{courseid}/events/live, a websocket
// feed of the stash's events.
func (h *StashHandler) LiveEvents(w http.ResponseWriter, r *http.Request) {
	m, ok := h.course(w, r)
	if !ok {
		return
	}
	h.Hub.Serve(w, r, m.Stash().ID)
}
