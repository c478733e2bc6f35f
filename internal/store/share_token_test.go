package store

import (
	"testing"
	"time"
)

func TestIssueShareToken(t *testing.T) {
	db := setupTestDB(t)
	ss := NewShareTokenStore(db)
	fx := seedCheckinFixtures(t, db, 1)

	token, err := ss.Issue(fx.familyID, fx.eventID, []int64{10, 11})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token.Token == "" {
		t.Fatal("expected a token string")
	}
	if len(token.Token) < 40 {
		t.Errorf("token %q looks too short for 32 random bytes", token.Token)
	}
	if token.Used {
		t.Error("new token must not be used")
	}
	if got := time.Until(token.ExpiresAt); got < 23*time.Hour || got > 25*time.Hour {
		t.Errorf("expiry %v is not ~24h out", got)
	}
	if len(token.CheckinIDs) != 2 || token.CheckinIDs[0] != 10 || token.CheckinIDs[1] != 11 {
		t.Errorf("checkin ids = %v, want [10 11]", token.CheckinIDs)
	}
}

func TestGetActiveUnknownToken(t *testing.T) {
	db := setupTestDB(t)
	ss := NewShareTokenStore(db)

	got, err := ss.GetActive("nope")
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown token")
	}
}

func TestGetActivePurgesRetired(t *testing.T) {
	db := setupTestDB(t)
	ss := NewShareTokenStore(db)
	fx := seedCheckinFixtures(t, db, 1)

	expired, err := ss.Issue(fx.familyID, fx.eventID, []int64{1})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	used, err := ss.Issue(fx.familyID, fx.eventID, []int64{2})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	live, err := ss.Issue(fx.familyID, fx.eventID, []int64{3})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := db.Exec(`UPDATE share_tokens SET expires_at = ? WHERE id = ?`,
		time.Now().UTC().Add(-time.Minute), expired.ID); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if err := ss.MarkUsed(used.ID); err != nil {
		t.Fatalf("mark used: %v", err)
	}

	// Any lookup retires both dead tokens.
	got, err := ss.GetActive(live.Token)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if got == nil {
		t.Fatal("live token should resolve")
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM share_tokens`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 remaining token after lazy purge, got %d", count)
	}

	for _, tok := range []string{expired.Token, used.Token} {
		got, err := ss.GetActive(tok)
		if err != nil {
			t.Fatalf("get active: %v", err)
		}
		if got != nil {
			t.Errorf("retired token %q should not resolve", tok)
		}
	}
}

func TestListActiveExcludesRetired(t *testing.T) {
	db := setupTestDB(t)
	ss := NewShareTokenStore(db)
	fx := seedCheckinFixtures(t, db, 1)

	live, err := ss.Issue(fx.familyID, fx.eventID, []int64{1})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	dead, err := ss.Issue(fx.familyID, fx.eventID, []int64{2})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := ss.MarkUsed(dead.ID); err != nil {
		t.Fatalf("mark used: %v", err)
	}

	active, err := ss.ListActive()
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != live.ID {
		t.Fatalf("active = %+v, want only token %d", active, live.ID)
	}
}
