package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/routine/internal/model"
	"github.com/dukerupert/routine/internal/session"
)

type ItemHandler struct {
	session *session.Session
	logger  *slog.Logger
}

func NewItemHandler(sess *session.Session, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{session: sess, logger: logger}
}

type itemList struct {
	Alarms    []model.Item `json:"alarms"`
	Schedules []model.Item `json:"schedules"`
}

// List handles GET /api/items?view=today|alarms|all
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	switch view := r.URL.Query().Get("view"); view {
	case "today":
		writeJSON(w, http.StatusOK, nonNil(h.session.SchedulesOn(h.session.Now())))
	case "alarms":
		writeJSON(w, http.StatusOK, nonNil(h.session.ActiveAlarms()))
	case "", "all":
		writeJSON(w, http.StatusOK, itemList{
			Alarms:    nonNil(h.session.Alarms()),
			Schedules: nonNil(h.session.Schedules()),
		})
	default:
		writeError(w, http.StatusBadRequest, "view must be today, alarms or all")
	}
}

type createItemRequest struct {
	Title string `json:"title"`
	Kind  string `json:"kind"`
	Date  string `json:"date"`
	Time  string `json:"time"`
}

// Create handles POST /api/items
//
// The date ("2006-01-02") and time ("15:04") are interpreted in the server's
// local time zone.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	kind, ok := model.ParseKind(req.Kind)
	if !ok {
		writeError(w, http.StatusBadRequest, "kind must be alarm, meeting or reminder")
		return
	}
	if req.Date == "" || req.Time == "" {
		writeError(w, http.StatusBadRequest, "date and time are required")
		return
	}
	at, err := time.ParseInLocation("2006-01-02 15:04", strings.TrimSpace(req.Date)+" "+strings.TrimSpace(req.Time), time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date or time")
		return
	}

	item, err := h.session.CreateItem(r.Context(), req.Title, at, kind)
	if err != nil {
		h.logger.Error("create item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// Delete handles DELETE /api/items/{id}
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ok, err := h.session.DeleteItem(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.Error("delete item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func nonNil(items []model.Item) []model.Item {
	if items == nil {
		return []model.Item{}
	}
	return items
}
