package checkout

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/dukerupert/rollcall/internal/store"
)

const (
	codeMin         = 10000
	codeSpan        = 90000
	maxCodeAttempts = 100
)

// Issuer assigns the per-family-per-event checkout code.
type Issuer struct {
	ledger *store.CheckinStore
}

func NewIssuer(ledger *store.CheckinStore) *Issuer {
	return &Issuer{ledger: ledger}
}

// generateCode returns a random 5-digit numeric code (10000–99999).
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%05d", n.Int64()+codeMin), nil
}

// IssueOrReuse returns the family's existing code for the event when any of
// its open entries already carries one, so siblings checked in at different
// times present a single code. Otherwise it draws random candidates,
// rejecting any held by an open entry in the event, and gives up with
// ErrExhaustedRetries after 100 collisions — a saturated code space needs
// operator attention, not an infinite loop.
func (i *Issuer) IssueOrReuse(familyID, eventID int64) (string, error) {
	existing, err := i.ledger.FamilyOpenCode(familyID, eventID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return *existing, nil
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		inUse, err := i.ledger.CodeInUse(eventID, code)
		if err != nil {
			return "", err
		}
		if !inUse {
			return code, nil
		}
	}
	return "", ErrExhaustedRetries
}
