package checkout

import "github.com/dukerupert/rollcall/internal/model"

// Decision is the outcome of the checkout authorization gate.
type Decision int

const (
	Authorized Decision = iota
	CodeRequired
	InvalidCode
	NotFound
)

// Authorize decides whether a presented credential is sufficient to check out
// the kid whose open ledger entry is given (nil when the kid has no open
// entry). Pure function over the settings snapshot: no side effects, safe to
// call repeatedly, consumes nothing.
//
// The override and developer passwords authorize any checkout regardless of
// the family code. Comparison is plain equality, matching the documented
// behavior of the kiosk; the codes themselves are coordination tokens, not
// secrets.
func Authorize(entry *model.Checkin, providedCode string, settings Settings) Decision {
	if !settings.RequireCode {
		return Authorized
	}

	if providedCode == "" {
		return CodeRequired
	}

	if providedCode == settings.OverridePassword {
		return Authorized
	}
	if settings.DeveloperPassword != "" && providedCode == settings.DeveloperPassword {
		return Authorized
	}

	if entry == nil {
		return NotFound
	}
	if entry.CheckoutCode == nil || *entry.CheckoutCode != providedCode {
		return InvalidCode
	}
	return Authorized
}
