package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/routine/internal/command"
	"github.com/dukerupert/routine/internal/session"
)

type CommandHandler struct {
	session *session.Session
	logger  *slog.Logger
}

func NewCommandHandler(sess *session.Session, logger *slog.Logger) *CommandHandler {
	return &CommandHandler{session: sess, logger: logger}
}

type utteranceRequest struct {
	Text string `json:"text"`
}

type utteranceResponse struct {
	command.Result
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Utterance handles POST /api/utterances
func (h *CommandHandler) Utterance(w http.ResponseWriter, r *http.Request) {
	var req utteranceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	res := h.session.OnUtterance(r.Context(), req.Text)
	resp := utteranceResponse{Result: res, OK: res.OK()}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}

	status := http.StatusOK
	switch {
	case res.Err == nil:
		if res.Item != nil {
			status = http.StatusCreated
		}
	case errors.Is(res.Err, session.ErrUnsupportedCapability):
		status = http.StatusNotImplemented
	case errors.Is(res.Err, command.ErrParse), errors.Is(res.Err, command.ErrUnrecognized):
		status = http.StatusUnprocessableEntity
	case errors.Is(res.Err, command.ErrNotFound):
		status = http.StatusNotFound
	default:
		status = http.StatusInternalServerError
		resp.Error = "failed to process command"
	}
	writeJSON(w, status, resp)
}
