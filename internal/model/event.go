package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event represents a scheduled event owned by the user who created it.
//
// The `json:"..."` tags control how encoding/json serializes the struct —
// the API speaks camelCase while the Go code uses exported CamelCase fields.
//
// OWNERSHIP:
// CreatorID always references an existing user, and only that user may
// update or delete the event. Responses resolve the creator to a
// PublicUser (Creator field) so clients can display name and email without
// a second request.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	// Organizer is an optional display-name override shown instead of the
	// creator's name. Empty means "use the creator's name".
	Organizer string `json:"organizer,omitempty"`

	CreatorID string      `json:"creatorId"`
	Creator   *PublicUser `json:"creator,omitempty"` // resolved on read paths

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EventPatch is the allow-listed set of fields a creator may change on an
// existing event. Every field is a pointer: nil means "leave unchanged",
// non-nil means "set to this value".
//
// WHY AN EXPLICIT PATCH STRUCT?
// Copying the request body onto the record field-by-field would let a
// caller overwrite creatorId or createdAt. A named struct (decoded with
// DisallowUnknownFields at the HTTP layer) makes the mutable surface
// explicit: anything not listed here cannot be patched.
type EventPatch struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Date        *EventDate `json:"date"`
	Location    *string    `json:"location"`
	Organizer   *string    `json:"organizer"`
}

// datetimeLocalLayout is what a browser <input type="datetime-local">
// submits: no seconds, no zone.
const datetimeLocalLayout = "2006-01-02T15:04"

// EventDate is a time.Time that decodes from both RFC 3339 timestamps and
// the datetime-local format ("2030-01-01T09:00"). Web clients post the
// short form straight out of a date picker; API clients send RFC 3339.
// Zoneless values are interpreted as UTC.
type EventDate struct {
	time.Time
}

func (d *EventDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(datetimeLocalLayout, s)
	if err != nil {
		return fmt.Errorf("model: date %q is neither RFC 3339 nor datetime-local", s)
	}
	d.Time = t
	return nil
}
