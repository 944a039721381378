// Package service — event business logic.
//
// EventService owns the rules around events:
//
//	EventHandler (HTTP) → EventService (business rules) → EventRepository (DB)
//	                    ↘ Broadcaster (live notifications)
//
// KEY RESPONSIBILITIES:
//   - Validate event input before it reaches the database
//   - Enforce creator-only authorization on update and delete
//   - Broadcast eventCreated/eventUpdated/eventDeleted AFTER the database
//     write succeeds, so subscribers never hear about a change that was
//     rolled back
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/event-board/internal/apperror"
	"github.com/sakif/event-board/internal/model"
	"github.com/sakif/event-board/internal/repository"
)

// Broadcaster is the slice of the hub the event service needs. *hub.Hub
// satisfies it; tests substitute a recording fake.
type Broadcaster interface {
	EventCreated(event *model.Event)
	EventUpdated(event *model.Event)
	EventDeleted(eventID string)
}

// EventService handles the event business logic.
type EventService struct {
	events    repository.EventRepository
	broadcast Broadcaster
	logger    *slog.Logger
}

// NewEventService creates an EventService with all required dependencies.
func NewEventService(events repository.EventRepository, broadcast Broadcaster, logger *slog.Logger) *EventService {
	return &EventService{
		events:    events,
		broadcast: broadcast,
		logger:    logger,
	}
}

// List returns all events sorted by date ascending, each with its creator
// resolved to a public profile.
func (s *EventService) List(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx)
}

// GetByID returns a single event with its creator resolved.
func (s *EventService) GetByID(ctx context.Context, id string) (*model.Event, error) {
	return s.events.GetByID(ctx, id)
}

// Create stores a new event owned by the given user and announces it.
//
// The creator is always the authenticated user — the client cannot create
// events on someone else's behalf. The broadcast carries the stored event
// with its creator profile resolved, so subscribers can render it without a
// follow-up fetch.
func (s *EventService) Create(ctx context.Context, creator *model.User, event *model.Event) (*model.Event, error) {
	if err := validateEvent(event); err != nil {
		return nil, err
	}

	event.CreatorID = creator.ID
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	// Re-read through the repository so the broadcast payload matches what
	// a GET would return, creator profile included.
	stored, err := s.events.GetByID(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("service/event: reloading created event %s: %w", event.ID, err)
	}

	s.logger.Info("event created",
		slog.String("eventID", stored.ID),
		slog.String("creatorID", creator.ID),
	)
	s.broadcast.EventCreated(stored)

	return stored, nil
}

// Update applies a partial update to an event the user created.
//
// AUTHORIZATION: only the creator may update. The existence check runs
// first, so an unknown ID is 404 for everyone; a known ID owned by someone
// else is 403. Fields left nil in the patch keep their current value, and
// creator and creation time can never change.
func (s *EventService) Update(ctx context.Context, user *model.User, id string, patch *model.EventPatch) (*model.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.CreatorID != user.ID {
		return nil, apperror.Forbidden("You are not authorized to update this event")
	}

	applyPatch(event, patch)
	if err := validateEvent(event); err != nil {
		return nil, err
	}

	if err := s.events.Update(ctx, event); err != nil {
		return nil, err
	}

	stored, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/event: reloading updated event %s: %w", id, err)
	}

	s.logger.Info("event updated",
		slog.String("eventID", id),
		slog.String("userID", user.ID),
	)
	s.broadcast.EventUpdated(stored)

	return stored, nil
}

// Delete removes an event the user created and announces the deletion.
// The broadcast carries only the event ID — the record is gone.
func (s *EventService) Delete(ctx context.Context, user *model.User, id string) error {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if event.CreatorID != user.ID {
		return apperror.Forbidden("You are not authorized to delete this event")
	}

	if err := s.events.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("event deleted",
		slog.String("eventID", id),
		slog.String("userID", user.ID),
	)
	s.broadcast.EventDeleted(id)

	return nil
}

// validateEvent enforces the required fields shared by create and update.
func validateEvent(event *model.Event) error {
	if strings.TrimSpace(event.Name) == "" {
		return apperror.ValidationFailed("name", "name is required")
	}
	if strings.TrimSpace(event.Description) == "" {
		return apperror.ValidationFailed("description", "description is required")
	}
	if event.Date.IsZero() {
		return apperror.ValidationFailed("date", "date is required")
	}
	if strings.TrimSpace(event.Location) == "" {
		return apperror.ValidationFailed("location", "location is required")
	}
	return nil
}

// applyPatch copies the non-nil patch fields onto the event. The allow-list
// is exactly the mutable fields; identifiers and ownership never move.
func applyPatch(event *model.Event, patch *model.EventPatch) {
	if patch.Name != nil {
		event.Name = *patch.Name
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.Date != nil {
		event.Date = patch.Date.Time
	}
	if patch.Location != nil {
		event.Location = *patch.Location
	}
	if patch.Organizer != nil {
		event.Organizer = *patch.Organizer
	}
}
