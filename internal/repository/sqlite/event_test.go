package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/event-board/internal/apperror"
	"github.com/sakif/event-board/internal/model"
)

// createTestEvent creates an event for the given creator and fails the test
// if it errors.
func createTestEvent(t *testing.T, db *DB, creatorID, name string, date time.Time) *model.Event {
	t.Helper()
	event := &model.Event{
		Name:        name,
		Description: "test event",
		Date:        date,
		Location:    "Room1",
		CreatorID:   creatorID,
	}
	if err := db.Create(context.Background(), event); err != nil {
		t.Fatalf("failed to create test event: %v", err)
	}
	return event
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestEventCreate(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "Alice", "alice@x.com")

	event := &model.Event{
		Name:        "Standup",
		Description: "daily",
		Date:        time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC),
		Location:    "Room1",
		CreatorID:   alice.ID,
	}

	if err := db.Create(context.Background(), event); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if event.ID == "" {
		t.Error("Create() did not set event.ID")
	}
	if event.CreatedAt.IsZero() {
		t.Error("Create() did not set event.CreatedAt")
	}
}

func TestEventCreate_UnknownCreatorRejected(t *testing.T) {
	db := newTestDB(t)

	// creator_id carries a foreign key — an event can never reference a
	// user that doesn't exist.
	event := &model.Event{
		Name:      "Ghost meetup",
		Date:      time.Now(),
		Location:  "Nowhere",
		CreatorID: "no-such-user",
	}
	if err := db.Create(context.Background(), event); err == nil {
		t.Fatal("Create() should fail when creator_id references no user")
	}
}

// =========================================================================
// GET TESTS
// =========================================================================

func TestEventGetByID_ResolvesCreator(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "Alice", "alice@x.com")
	created := createTestEvent(t, db, alice.ID, "Standup", time.Now().Add(time.Hour))

	got, err := db.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.Creator == nil {
		t.Fatal("GetByID() did not resolve the creator")
	}
	if got.Creator.Email != "alice@x.com" {
		t.Errorf("Creator.Email = %q, want %q", got.Creator.Email, "alice@x.com")
	}
	if got.Creator.Name != "Alice" {
		t.Errorf("Creator.Name = %q, want %q", got.Creator.Name, "Alice")
	}
}

func TestEventGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestEventList_SortedByDateAscending(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "Alice", "alice@x.com")
	base := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)

	// Insert deliberately out of chronological order.
	createTestEvent(t, db, alice.ID, "third", base.AddDate(0, 2, 0))
	createTestEvent(t, db, alice.ID, "first", base)
	createTestEvent(t, db, alice.ID, "second", base.AddDate(0, 1, 0))

	events, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("List() returned %d events, want 3", len(events))
	}

	wantOrder := []string{"first", "second", "third"}
	for i, want := range wantOrder {
		if events[i].Name != want {
			t.Errorf("events[%d].Name = %q, want %q", i, events[i].Name, want)
		}
	}

	// Every listed event carries its resolved creator.
	for _, e := range events {
		if e.Creator == nil || e.Creator.Email != "alice@x.com" {
			t.Errorf("event %q creator not resolved: %+v", e.Name, e.Creator)
		}
	}
}

func TestEventList_Empty(t *testing.T) {
	db := newTestDB(t)

	events, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if events == nil {
		t.Error("List() returned nil, want empty slice (serializes to [] not null)")
	}
	if len(events) != 0 {
		t.Errorf("List() returned %d events, want 0", len(events))
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestEventUpdate(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "Alice", "alice@x.com")
	event := createTestEvent(t, db, alice.ID, "Standup", time.Now().Add(time.Hour))

	event.Name = "Standup (moved)"
	event.Location = "Room2"
	if err := db.Update(context.Background(), event); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := db.GetByID(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Standup (moved)" {
		t.Errorf("Name = %q, want %q", got.Name, "Standup (moved)")
	}
	if got.Location != "Room2" {
		t.Errorf("Location = %q, want %q", got.Location, "Room2")
	}
}

func TestEventUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Update(context.Background(), &model.Event{ID: "nonexistent", Name: "x"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestEventDelete(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "Alice", "alice@x.com")
	event := createTestEvent(t, db, alice.ID, "Standup", time.Now().Add(time.Hour))

	if err := db.Delete(context.Background(), event.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := db.GetByID(context.Background(), event.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
}

func TestEventDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Delete(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}
