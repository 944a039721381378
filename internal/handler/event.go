package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/event-board/internal/auth"
	"github.com/sakif/event-board/internal/model"
	"github.com/sakif/event-board/internal/service"
)

// EventHandler manages CRUD operations for events.
//
// Every route here sits behind RequireAuth, which has already placed the
// authenticated user in the request context by the time these handlers run.
type EventHandler struct {
	service  *service.EventService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(svc *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		service:  svc,
		validate: validator.New(),
		logger:   logger,
	}
}

// createEventRequest is the write shape for POST /api/events. It is a
// separate struct from model.Event on purpose: the client must not be able
// to set the ID, the creator, or the timestamps. Date is a model.EventDate
// so browser date-picker values ("2030-01-01T09:00") decode alongside
// RFC 3339.
type createEventRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Date        model.EventDate `json:"date" validate:"required"`
	Location    string          `json:"location" validate:"required"`
	Organizer   string          `json:"organizer"`
}

// HandleList returns all events sorted by date, creators included.
//
// HTTP: GET /api/events
func (h *EventHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleGetByID returns a single event.
//
// HTTP: GET /api/events/{id}
func (h *EventHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	event, err := h.service.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// HandleCreate stores a new event owned by the authenticated user.
//
// HTTP: POST /api/events
// RESPONSE: 201 with the stored event; subscribers receive eventCreated.
func (h *EventHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	var req createEventRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid JSON body",
		})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		var fieldErrs validator.ValidationErrors
		message := "Invalid request"
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			message = "Invalid value for field: " + fieldErrs[0].Field()
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: message,
		})
		return
	}

	event := &model.Event{
		Name:        req.Name,
		Description: req.Description,
		Date:        req.Date.Time,
		Location:    req.Location,
		Organizer:   req.Organizer,
	}
	stored, err := h.service.Create(r.Context(), user, event)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, stored)
}

// HandleUpdate applies a partial update to an event the user created.
//
// HTTP: PUT /api/events/{id}
//
// The body is decoded into model.EventPatch — an allow-list of the five
// mutable fields. DisallowUnknownFields rejects attempts to smuggle in
// "creatorId" or any other field instead of silently dropping them.
func (h *EventHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	var patch model.EventPatch
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid JSON body",
		})
		return
	}

	stored, err := h.service.Update(r.Context(), user, r.PathValue("id"), &patch)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stored)
}

// HandleDelete removes an event the user created.
//
// HTTP: DELETE /api/events/{id}
// RESPONSE: 200 with a confirmation message; subscribers receive
// eventDeleted carrying the ID.
func (h *EventHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	id := r.PathValue("id")
	if err := h.service.Delete(r.Context(), user, id); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("event deleted via API", slog.String("id", id))

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Event deleted",
	})
}
