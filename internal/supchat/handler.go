package supchat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc      Service
	platform *Platform
	logger   *slog.Logger
}

func NewHandler(svc Service, platform *Platform, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, platform: platform, logger: logger}
}

func (h *Handler) Snapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.platform.Directory().Snapshot())
}

func (h *Handler) ChatsForPerson(w http.ResponseWriter, r *http.Request) {
	chats := h.platform.Directory().ChatsForPerson(chi.URLParam(r, "id"))
	out := make([]ChatRecord, 0, len(chats))
	for _, c := range chats {
		out = append(out, c.record())
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) OpenChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ClientID string `json:"client_id"`
	}
	if !decode(w, r, &payload) {
		return
	}
	if payload.ClientID == "" {
		http.Error(w, "missing client_id", http.StatusBadRequest)
		return
	}

	chat, err := h.svc.OpenChat(r.Context(), payload.ClientID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chat.record())
}

func (h *Handler) StartChats(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Count int `json:"count"`
	}
	if !decode(w, r, &payload) {
		return
	}

	report, err := h.platform.StartChats(r.Context(), payload.Count)
	if err != nil {
		h.fail(w, err)
		return
	}

	type failure struct {
		ClientID string `json:"client_id"`
		Error    string `json:"error"`
	}
	failures := make([]failure, 0, len(report.Failures))
	for _, f := range report.Failures {
		failures = append(failures, failure{ClientID: f.ClientID, Error: f.Err.Error()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"opened":   nonNil(report.Opened),
		"failures": failures,
	})
}

func (h *Handler) Escalate(w http.ResponseWriter, r *http.Request) {
	agent, err := h.svc.Escalate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent.agentRecord())
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonID string `json:"person_id"`
		Text     string `json:"text"`
	}
	if !decode(w, r, &payload) {
		return
	}
	if payload.PersonID == "" {
		http.Error(w, "missing person_id", http.StatusBadRequest)
		return
	}

	if err := h.svc.SendMessage(r.Context(), payload.PersonID, payload.Text); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) CloseChat(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseChat(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetCsat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Score int `json:"score"`
	}
	if !decode(w, r, &payload) {
		return
	}

	if err := h.svc.SetCsat(r.Context(), chi.URLParam(r, "id"), payload.Score); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Step(w http.ResponseWriter, r *http.Request) {
	report, err := h.platform.Step(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"closed":  nonNil(report.Closed),
		"rated":   report.Rated,
		"replies": report.Replies,
	})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", slog.Any("error", err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownPerson), errors.Is(err, ErrUnknownChat):
		return http.StatusNotFound
	case errors.Is(err, ErrNoAgentAvailable),
		errors.Is(err, ErrChatAlreadyClosed),
		errors.Is(err, ErrNoActiveChat),
		errors.Is(err, ErrChatStillOpen),
		errors.Is(err, ErrClientAlreadyInChat),
		errors.Is(err, ErrCsatAlreadySet):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCsat),
		errors.Is(err, ErrInvalidChatCount),
		errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrNotAnAgent),
		errors.Is(err, ErrNotAClient):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
