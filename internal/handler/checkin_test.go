package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/rollcall/internal/checkout"
	"github.com/dukerupert/rollcall/internal/database"
	"github.com/dukerupert/rollcall/internal/model"
	"github.com/dukerupert/rollcall/internal/store"
	"github.com/dukerupert/rollcall/internal/websocket"
)

type testEnv struct {
	checkins *CheckinHandler
	share    *ShareHandler
	family   *model.Family
	adult    *model.Adult
	kid1     *model.Kid
	kid2     *model.Kid
	event    *model.Event
}

func setupHandlers(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ledger := store.NewCheckinStore(db)
	tokens := store.NewShareTokenStore(db)
	families := store.NewFamilyStore(db)
	settings := store.NewSettingsStore(db)
	events := store.NewEventStore(db)

	svc := checkout.NewService(ledger, tokens, families, settings, "", "http://kiosk.test", slog.Default())
	hub := websocket.NewHub(slog.Default())

	family, err := families.Create("Baggins", "555-0100", "Gandalf")
	if err != nil {
		t.Fatalf("seed family: %v", err)
	}
	adult, _ := families.CreateAdult(family.ID, "Bilbo")
	kid1, _ := families.CreateKid(family.ID, "Frodo", "")
	kid2, _ := families.CreateKid(family.ID, "Sam", "")
	event, err := events.Create("Sunday Service", time.Now().UTC())
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}

	return &testEnv{
		checkins: NewCheckinHandler(svc, ledger, hub, slog.Default()),
		share:    NewShareHandler(svc),
		family:   family,
		adult:    adult,
		kid1:     kid1,
		kid2:     kid2,
		event:    event,
	}
}

func postJSON(t *testing.T, h http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/checkins", h)
	mux.HandleFunc("POST /api/kids/{id}/checkout", h)
	mux.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) checkin(t *testing.T, kidIDs []int64) checkout.CheckinResult {
	t.Helper()
	rec := postJSON(t, env.checkins.Create, "/api/checkins", map[string]any{
		"family_id": env.family.ID,
		"adult_id":  env.adult.ID,
		"kid_ids":   kidIDs,
		"event_id":  env.event.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("check-in status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result checkout.CheckinResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode check-in result: %v", err)
	}
	return result
}

func TestCheckinEndpoint(t *testing.T) {
	env := setupHandlers(t)

	result := env.checkin(t, []int64{env.kid1.ID, env.kid2.ID})

	if len(result.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(result.Entries))
	}
	if result.CheckoutCode == nil || len(*result.CheckoutCode) != 5 {
		t.Errorf("checkout code = %v, want 5 digits", result.CheckoutCode)
	}
	if result.ShareToken == nil {
		t.Fatal("expected share token with qr method enabled")
	}
	wantURL := "http://kiosk.test/share/" + *result.ShareToken
	if result.ShareURL != wantURL {
		t.Errorf("share url = %q, want %q", result.ShareURL, wantURL)
	}
}

func TestCheckinRejectsEmptyGroup(t *testing.T) {
	env := setupHandlers(t)

	rec := postJSON(t, env.checkins.Create, "/api/checkins", map[string]any{
		"family_id": env.family.ID,
		"adult_id":  env.adult.ID,
		"kid_ids":   []int64{},
		"event_id":  env.event.ID,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCheckoutEndpoint(t *testing.T) {
	env := setupHandlers(t)
	result := env.checkin(t, []int64{env.kid1.ID, env.kid2.ID})

	target := fmt.Sprintf("/api/kids/%d/checkout", env.kid1.ID)

	// Wrong code is rejected
	rec := postJSON(t, env.checkins.Checkout, target, map[string]any{
		"event_id": env.event.ID,
		"code":     "00000",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wrong code status = %d, want 403", rec.Code)
	}

	// Right code closes the whole group
	rec = postJSON(t, env.checkins.Checkout, target, map[string]any{
		"additional_kid_ids": []int64{env.kid2.ID},
		"event_id":           env.event.ID,
		"code":               *result.CheckoutCode,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out checkout.CheckoutResult
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.ClosedCount != 2 {
		t.Errorf("closed_count = %d, want 2", out.ClosedCount)
	}

	// Retry is an idempotent no-op
	rec = postJSON(t, env.checkins.Checkout, target, map[string]any{
		"event_id": env.event.ID,
		"code":     *result.CheckoutCode,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("retry status = %d, want 200", rec.Code)
	}
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.ClosedCount != 0 {
		t.Errorf("retry closed_count = %d, want 0", out.ClosedCount)
	}
}

func TestCheckoutUnknownKid(t *testing.T) {
	env := setupHandlers(t)
	env.checkin(t, []int64{env.kid1.ID})

	rec := postJSON(t, env.checkins.Checkout, "/api/kids/9999/checkout", map[string]any{
		"event_id": env.event.ID,
		"code":     "12345",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestShareEndpointLifecycle(t *testing.T) {
	env := setupHandlers(t)
	result := env.checkin(t, []int64{env.kid1.ID})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /share/{token}", env.share.Resolve)
	mux.HandleFunc("POST /api/kids/{id}/checkout", env.checkins.Checkout)

	// Live token resolves
	req := httptest.NewRequest("GET", "/share/"+*result.ShareToken, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("share status = %d, body %s", rec.Code, rec.Body.String())
	}
	var view checkout.TokenView
	json.Unmarshal(rec.Body.Bytes(), &view)
	if view.CheckoutCode != *result.CheckoutCode {
		t.Errorf("view code = %q, want %q", view.CheckoutCode, *result.CheckoutCode)
	}
	if view.AllCheckedOut {
		t.Error("AllCheckedOut should be false before checkout")
	}

	// Check everyone out; the token retires
	rec = postJSON(t, env.checkins.Checkout, fmt.Sprintf("/api/kids/%d/checkout", env.kid1.ID), map[string]any{
		"event_id": env.event.ID,
		"code":     *result.CheckoutCode,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout status = %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/share/"+*result.ShareToken, nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("retired share status = %d, want 404", rec.Code)
	}
}

func TestSiblingsEndpoint(t *testing.T) {
	env := setupHandlers(t)
	env.checkin(t, []int64{env.kid1.ID, env.kid2.ID})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/kids/{id}/siblings", env.checkins.Siblings)

	req := httptest.NewRequest("GET",
		fmt.Sprintf("/api/kids/%d/siblings?event_id=%d", env.kid1.ID, env.event.ID), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var kids []model.Kid
	json.Unmarshal(rec.Body.Bytes(), &kids)
	if len(kids) != 1 || kids[0].ID != env.kid2.ID {
		t.Errorf("siblings = %+v, want only kid %d", kids, env.kid2.ID)
	}
}

func TestRosterEndpoint(t *testing.T) {
	env := setupHandlers(t)
	env.checkin(t, []int64{env.kid1.ID, env.kid2.ID})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/events/{id}/checkins", env.checkins.Roster)

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/events/%d/checkins", env.event.ID), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var entries []model.Checkin
	json.Unmarshal(rec.Body.Bytes(), &entries)
	if len(entries) != 2 {
		t.Errorf("roster = %d entries, want 2", len(entries))
	}
}
