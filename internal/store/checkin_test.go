package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/dukerupert/rollcall/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type fixtures struct {
	familyID int64
	adultID  int64
	kidIDs   []int64
	eventID  int64
}

func seedCheckinFixtures(t *testing.T, db *sql.DB, kidCount int) fixtures {
	t.Helper()
	fs := NewFamilyStore(db)
	es := NewEventStore(db)

	family, err := fs.Create("Baggins", "555-0100", "Gandalf")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	adult, err := fs.CreateAdult(family.ID, "Frodo")
	if err != nil {
		t.Fatalf("create adult: %v", err)
	}
	var kidIDs []int64
	for i := 0; i < kidCount; i++ {
		kid, err := fs.CreateKid(family.ID, "Kid", "")
		if err != nil {
			t.Fatalf("create kid: %v", err)
		}
		kidIDs = append(kidIDs, kid.ID)
	}
	event, err := es.Create("Campout", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return fixtures{familyID: family.ID, adultID: adult.ID, kidIDs: kidIDs, eventID: event.ID}
}

func TestInsertGroupAndGetOpen(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCheckinStore(db)
	fx := seedCheckinFixtures(t, db, 2)

	code := "48213"
	entries, err := cs.InsertGroup(fx.kidIDs, fx.adultID, fx.eventID, &code, time.Now())
	if err != nil {
		t.Fatalf("insert group: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	open, err := cs.GetOpen(fx.kidIDs[0], fx.eventID)
	if err != nil {
		t.Fatalf("get open: %v", err)
	}
	if open == nil {
		t.Fatal("expected open entry")
	}
	if open.CheckoutCode == nil || *open.CheckoutCode != "48213" {
		t.Errorf("code = %v, want 48213", open.CheckoutCode)
	}
	if !open.Open() {
		t.Error("entry should report open")
	}
}

func TestInsertGroupSkipsOpenKids(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCheckinStore(db)
	fx := seedCheckinFixtures(t, db, 2)

	code := "11111"
	if _, err := cs.InsertGroup(fx.kidIDs[:1], fx.adultID, fx.eventID, &code, time.Now()); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	// Re-inserting both only creates a row for the second kid.
	entries, err := cs.InsertGroup(fx.kidIDs, fx.adultID, fx.eventID, &code, time.Now())
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 new entry, got %d", len(entries))
	}
	if entries[0].KidID != fx.kidIDs[1] {
		t.Errorf("new entry kid = %d, want %d", entries[0].KidID, fx.kidIDs[1])
	}
}

func TestCloseOpenIsOneWay(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCheckinStore(db)
	fx := seedCheckinFixtures(t, db, 1)

	code := "22222"
	if _, err := cs.InsertGroup(fx.kidIDs, fx.adultID, fx.eventID, &code, time.Now()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	closed, err := cs.CloseOpen(fx.kidIDs[0], fx.eventID, time.Now())
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed == nil || closed.CheckoutTime == nil {
		t.Fatal("expected a closed entry with checkout_time set")
	}

	// A second close finds nothing; the closed row is untouched.
	again, err := cs.CloseOpen(fx.kidIDs[0], fx.eventID, time.Now())
	if err != nil {
		t.Fatalf("re-close: %v", err)
	}
	if again != nil {
		t.Error("expected nil on closing an already-closed kid")
	}

	row, err := cs.GetByID(closed.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if row.CheckoutTime == nil || !row.CheckoutTime.Equal(*closed.CheckoutTime) {
		t.Error("closed row was mutated by the second close attempt")
	}
}

func TestRecheckinCreatesNewRow(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCheckinStore(db)
	fx := seedCheckinFixtures(t, db, 1)

	code := "33333"
	first, err := cs.InsertGroup(fx.kidIDs, fx.adultID, fx.eventID, &code, time.Now())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := cs.CloseOpen(fx.kidIDs[0], fx.eventID, time.Now()); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := cs.InsertGroup(fx.kidIDs, fx.adultID, fx.eventID, &code, time.Now())
	if err != nil {
		t.Fatalf("re-insert: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("expected 1 new entry, got %d", len(second))
	}
	if second[0].ID == first[0].ID {
		t.Error("re-check-in must create a new row, not reopen the old one")
	}
}

func TestFamilyOpenCode(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCheckinStore(db)
	fx := seedCheckinFixtures(t, db, 2)

	got, err := cs.FamilyOpenCode(fx.familyID, fx.eventID)
	if err != nil {
		t.Fatalf("family open code: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil before any check-in, got %q", *got)
	}

	code := "44444"
	if _, err := cs.InsertGroup(fx.kidIDs[:1], fx.adultID, fx.eventID, &code, time.Now()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err = cs.FamilyOpenCode(fx.familyID, fx.eventID)
	if err != nil {
		t.Fatalf("family open code: %v", err)
	}
	if got == nil || *got != "44444" {
		t.Errorf("family open code = %v, want 44444", got)
	}
}

func TestCodeInUseScopedToEvent(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCheckinStore(db)
	es := NewEventStore(db)
	fx := seedCheckinFixtures(t, db, 1)

	code := "55555"
	if _, err := cs.InsertGroup(fx.kidIDs, fx.adultID, fx.eventID, &code, time.Now()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	inUse, err := cs.CodeInUse(fx.eventID, code)
	if err != nil {
		t.Fatalf("code in use: %v", err)
	}
	if !inUse {
		t.Error("code should be in use for its event")
	}

	other, err := es.Create("Other Event", time.Now().Add(2*time.Hour))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	inUse, err = cs.CodeInUse(other.ID, code)
	if err != nil {
		t.Fatalf("code in use: %v", err)
	}
	if inUse {
		t.Error("code scope must not leak across events")
	}
}

func TestOpenSiblings(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCheckinStore(db)
	fx := seedCheckinFixtures(t, db, 3)

	code := "66666"
	if _, err := cs.InsertGroup(fx.kidIDs[:2], fx.adultID, fx.eventID, &code, time.Now()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	siblings, err := cs.OpenSiblings(fx.kidIDs[0], fx.eventID)
	if err != nil {
		t.Fatalf("open siblings: %v", err)
	}
	if len(siblings) != 1 || siblings[0].ID != fx.kidIDs[1] {
		t.Fatalf("siblings = %+v, want only kid %d", siblings, fx.kidIDs[1])
	}

	// Checked-out siblings drop off.
	if _, err := cs.CloseOpen(fx.kidIDs[1], fx.eventID, time.Now()); err != nil {
		t.Fatalf("close: %v", err)
	}
	siblings, err = cs.OpenSiblings(fx.kidIDs[0], fx.eventID)
	if err != nil {
		t.Fatalf("open siblings: %v", err)
	}
	if len(siblings) != 0 {
		t.Errorf("expected no open siblings, got %d", len(siblings))
	}
}

func TestListOpenByEvent(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCheckinStore(db)
	fx := seedCheckinFixtures(t, db, 2)

	code := "77777"
	if _, err := cs.InsertGroup(fx.kidIDs, fx.adultID, fx.eventID, &code, time.Now()); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := cs.CloseOpen(fx.kidIDs[0], fx.eventID, time.Now()); err != nil {
		t.Fatalf("close: %v", err)
	}

	open, err := cs.ListOpenByEvent(fx.eventID)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("expected 1 open entry, got %d", len(open))
	}
	if open[0].KidID != fx.kidIDs[1] {
		t.Errorf("open kid = %d, want %d", open[0].KidID, fx.kidIDs[1])
	}
}
