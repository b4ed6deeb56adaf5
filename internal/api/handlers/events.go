package handlers

import (
	"net/http"
	"time"

	"github.com/eventboard/server/internal/api/middleware"
	"github.com/eventboard/server/internal/audit"
	"github.com/eventboard/server/internal/auth"
	"github.com/eventboard/server/internal/domain/events"
)

type EventsHandler struct {
	Service *events.Service
	Audit   *audit.Logger
	Env     string
}

func NewEventsHandler(service *events.Service, env string) *EventsHandler {
	return &EventsHandler{Service: service, Env: env}
}

type eventResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Image       *string   `json:"image"`
	ImageURL    *string   `json:"image_url"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Location    string    `json:"location"`
	OrganizerID int64     `json:"organizer_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type eventMutationResponse struct {
	Message string `json:"message"`
	eventResponse
}

func toEventResponse(e events.Event) eventResponse {
	return eventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Image:       e.Image,
		ImageURL:    e.ImageURL,
		Date:        e.DateString(),
		Time:        e.Time.String(),
		Location:    e.Location,
		OrganizerID: e.OrganizerID,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.List(r.Context())
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	payload := make([]eventResponse, 0, len(items))
	for _, item := range items {
		payload = append(payload, toEventResponse(item))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	item, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(*item))
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, auth.ErrMissingToken, h.Env)
		return
	}

	var input events.Input
	if err := decodeJSON(r, &input); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}

	item, err := h.Service.Create(r.Context(), principal.UserID, input)
	if err != nil {
		h.Audit.Failure(r, "event.create", principal.UserID, "event", 0, err)
		writeError(w, r, err, h.Env)
		return
	}
	h.Audit.Success(r, "event.create", principal.UserID, "event", item.ID)
	writeJSON(w, http.StatusCreated, eventMutationResponse{Message: "Event created successfully", eventResponse: toEventResponse(*item)})
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, auth.ErrMissingToken, h.Env)
		return
	}
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	var input events.Input
	if err := decodeJSON(r, &input); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}

	item, err := h.Service.Update(r.Context(), principal.UserID, id, input)
	if err != nil {
		h.Audit.Failure(r, "event.update", principal.UserID, "event", id, err)
		writeError(w, r, err, h.Env)
		return
	}
	h.Audit.Success(r, "event.update", principal.UserID, "event", item.ID)
	writeJSON(w, http.StatusOK, eventMutationResponse{Message: "Event updated successfully", eventResponse: toEventResponse(*item)})
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, auth.ErrMissingToken, h.Env)
		return
	}
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	if err := h.Service.Delete(r.Context(), principal.UserID, id); err != nil {
		h.Audit.Failure(r, "event.delete", principal.UserID, "event", id, err)
		writeError(w, r, err, h.Env)
		return
	}
	h.Audit.Success(r, "event.delete", principal.UserID, "event", id)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Event deleted successfully"})
}
