package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/rollcall/internal/store"
)

func TestGenerateCodeWidth(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 5 {
			t.Fatalf("code %q is not 5 characters", code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("code %q contains non-digit", code)
			}
		}
	}
}

func TestIssueOrReuseReturnsExistingFamilyCode(t *testing.T) {
	_, env := setupService(t)
	family, adult, kids, event := seedFamily(t, env, "K1", "K2")
	issuer := NewIssuer(env.ledger)

	code, err := issuer.IssueOrReuse(family.ID, event.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := env.ledger.InsertGroup([]int64{kids[0].ID}, adult.ID, event.ID, &code, time.Now()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// A later check-in of a sibling reuses the open code.
	again, err := issuer.IssueOrReuse(family.ID, event.ID)
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if again != code {
		t.Errorf("reissued code = %q, want %q", again, code)
	}

	// After the family's entries close, a fresh check-in gets a fresh draw
	// (the old code is free again, but nothing pins it).
	if _, err := env.ledger.CloseOpen(kids[0].ID, event.ID, time.Now()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if existing, err := env.ledger.FamilyOpenCode(family.ID, event.ID); err != nil || existing != nil {
		t.Fatalf("open code after close = %v (err %v), want nil", existing, err)
	}
}

func TestRapidIssuanceNeverDuplicatesOpenCodes(t *testing.T) {
	svc, env := setupService(t)
	event, err := env.events.Create("Big Event", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	seen := make(map[string]int64)
	for i := 0; i < 100; i++ {
		family, err := env.families.Create("Family", "", "")
		if err != nil {
			t.Fatalf("create family: %v", err)
		}
		adult, err := env.families.CreateAdult(family.ID, "Adult")
		if err != nil {
			t.Fatalf("create adult: %v", err)
		}
		kid, err := env.families.CreateKid(family.ID, "Kid", "")
		if err != nil {
			t.Fatalf("create kid: %v", err)
		}

		result, err := svc.CheckinKids(context.Background(), family.ID, adult.ID, []int64{kid.ID}, event.ID)
		if err != nil {
			t.Fatalf("checkin %d: %v", i, err)
		}
		if result.CheckoutCode == nil {
			t.Fatalf("checkin %d: no code issued", i)
		}
		if prev, ok := seen[*result.CheckoutCode]; ok {
			t.Fatalf("code %q issued to families %d and %d", *result.CheckoutCode, prev, family.ID)
		}
		seen[*result.CheckoutCode] = family.ID
	}
}

func TestInsertGroupRejectsForeignCode(t *testing.T) {
	_, env := setupService(t)
	event, err := env.events.Create("Event", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	mkFamily := func() (int64, int64, int64) {
		family, _ := env.families.Create("F", "", "")
		adult, _ := env.families.CreateAdult(family.ID, "A")
		kid, _ := env.families.CreateKid(family.ID, "K", "")
		return family.ID, adult.ID, kid.ID
	}

	_, adult1, kid1 := mkFamily()
	_, adult2, kid2 := mkFamily()

	code := "13579"
	if _, err := env.ledger.InsertGroup([]int64{kid1}, adult1, event.ID, &code, time.Now()); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	// Another family landing on the same code must hit the conflict check,
	// simulating two kiosks racing between collision check and insert.
	_, err = env.ledger.InsertGroup([]int64{kid2}, adult2, event.ID, &code, time.Now())
	if err != store.ErrCodeConflict {
		t.Fatalf("err = %v, want ErrCodeConflict", err)
	}
}
