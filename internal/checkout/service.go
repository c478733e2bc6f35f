package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/rollcall/internal/model"
	"github.com/dukerupert/rollcall/internal/store"
)

// Service ties the code issuer, the ledger, and the share-token store into
// the four operations the kiosk calls. It performs no network I/O and holds
// no mutable state of its own.
type Service struct {
	ledger            *store.CheckinStore
	tokens            *store.ShareTokenStore
	families          *store.FamilyStore
	settings          *store.SettingsStore
	issuer            *Issuer
	developerPassword string
	baseURL           string
	logger            *slog.Logger
}

func NewService(
	ledger *store.CheckinStore,
	tokens *store.ShareTokenStore,
	families *store.FamilyStore,
	settings *store.SettingsStore,
	developerPassword string,
	baseURL string,
	logger *slog.Logger,
) *Service {
	return &Service{
		ledger:            ledger,
		tokens:            tokens,
		families:          families,
		settings:          settings,
		issuer:            NewIssuer(ledger),
		developerPassword: developerPassword,
		baseURL:           strings.TrimRight(baseURL, "/"),
		logger:            logger,
	}
}

// CheckinResult reports the rows a check-in created and the credentials the
// guardian takes away.
type CheckinResult struct {
	Entries      []model.Checkin `json:"checkins"`
	CheckoutCode *string         `json:"checkout_code,omitempty"`
	ShareToken   *string         `json:"share_token,omitempty"`
	ShareURL     string          `json:"share_url,omitempty"`
}

// CheckinKids checks the kids into the event under one shared checkout code
// and, when the QR method is enabled, issues a share token covering the new
// rows. Kids already checked in are skipped. The issue-then-insert pair is
// retried once as a whole when another kiosk claims the same code between the
// collision check and the insert.
func (s *Service) CheckinKids(ctx context.Context, familyID, adultID int64, kidIDs []int64, eventID int64) (*CheckinResult, error) {
	if familyID == 0 || adultID == 0 || eventID == 0 || len(kidIDs) == 0 {
		return nil, ErrValidation
	}

	settings, err := LoadSettings(s.settings, s.developerPassword)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	var code *string
	var entries []model.Checkin
	now := time.Now().UTC()

	backoff := retry.WithMaxRetries(1, retry.NewConstant(10*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		code = nil
		if settings.RequireCode {
			issued, err := s.issuer.IssueOrReuse(familyID, eventID)
			if err != nil {
				return err
			}
			code = &issued
		}

		inserted, err := s.ledger.InsertGroup(kidIDs, adultID, eventID, code, now)
		if errors.Is(err, store.ErrCodeConflict) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		entries = inserted
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrExhaustedRetries) {
			s.logger.Error("checkout code space saturated", "event_id", eventID)
		}
		return nil, err
	}

	result := &CheckinResult{Entries: entries, CheckoutCode: code}

	if code != nil && settings.WantsQR() && len(entries) > 0 {
		ids := make([]int64, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
		}
		token, err := s.tokens.Issue(familyID, eventID, ids)
		if err != nil {
			return nil, fmt.Errorf("issue share token: %w", err)
		}
		result.ShareToken = &token.Token
		result.ShareURL = s.ShareURL(token.Token)
	}

	return result, nil
}

// CheckoutResult reports which rows an authorized checkout closed.
type CheckoutResult struct {
	ClosedCount int     `json:"closed_count"`
	ClosedIDs   []int64 `json:"closed_ids"`
	UsedTokens  []int64 `json:"-"`
}

// Checkout authorizes the presented code against the primary kid's open entry
// once, then closes the open entries of the whole group under that single
// decision. Kids without an open entry are skipped, which makes a retried
// checkout a no-op rather than an error.
func (s *Service) Checkout(ctx context.Context, primaryKidID int64, additionalKidIDs []int64, eventID int64, providedCode string) (*CheckoutResult, error) {
	if primaryKidID == 0 || eventID == 0 {
		return nil, ErrValidation
	}

	settings, err := LoadSettings(s.settings, s.developerPassword)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	entry, err := s.ledger.GetOpen(primaryKidID, eventID)
	if err != nil {
		return nil, err
	}

	switch Authorize(entry, strings.TrimSpace(providedCode), settings) {
	case CodeRequired:
		return nil, ErrCodeRequired
	case InvalidCode:
		return nil, ErrInvalidCode
	case NotFound:
		return nil, ErrNotFound
	}

	now := time.Now().UTC()
	result := &CheckoutResult{}
	for _, kidID := range append([]int64{primaryKidID}, additionalKidIDs...) {
		closed, err := s.ledger.CloseOpen(kidID, eventID, now)
		if err != nil {
			return nil, err
		}
		if closed == nil {
			continue
		}
		result.ClosedCount++
		result.ClosedIDs = append(result.ClosedIDs, closed.ID)
	}

	if len(result.ClosedIDs) > 0 {
		used, err := s.retireCompletedTokens(result.ClosedIDs)
		if err != nil {
			return nil, err
		}
		result.UsedTokens = used
	}

	return result, nil
}

// retireCompletedTokens flips every active token whose covered rows are now
// all closed. A shared QR code must stop working the moment the last kid it
// covers has left.
func (s *Service) retireCompletedTokens(closedIDs []int64) ([]int64, error) {
	tokens, err := s.tokens.ListActive()
	if err != nil {
		return nil, err
	}

	closed := make(map[int64]bool, len(closedIDs))
	for _, id := range closedIDs {
		closed[id] = true
	}

	var used []int64
	for _, t := range tokens {
		overlap := false
		for _, id := range t.CheckinIDs {
			if closed[id] {
				overlap = true
				break
			}
		}
		if !overlap {
			continue
		}

		allClosed := true
		for _, id := range t.CheckinIDs {
			entry, err := s.ledger.GetByID(id)
			if err != nil {
				return nil, err
			}
			if entry != nil && entry.Open() {
				allClosed = false
				break
			}
		}
		if !allClosed {
			continue
		}

		if err := s.tokens.MarkUsed(t.ID); err != nil {
			return nil, err
		}
		used = append(used, t.ID)
	}
	return used, nil
}

// TokenKid is one kid's status inside a resolved share link.
type TokenKid struct {
	KidID      int64  `json:"kid_id"`
	Name       string `json:"name"`
	CheckedOut bool   `json:"checked_out"`
}

// TokenView is what a live share link exposes: the family code and the
// open/closed status of each covered kid.
type TokenView struct {
	EventID       int64      `json:"event_id"`
	FamilyID      int64      `json:"family_id"`
	CheckoutCode  string     `json:"checkout_code"`
	CheckinTime   time.Time  `json:"checkin_time"`
	Kids          []TokenKid `json:"kids"`
	AllCheckedOut bool       `json:"all_checked_out"`
}

// ResolveShareToken returns the view behind a share token, or ErrUnavailable.
// Expired, used, and never-issued tokens are indistinguishable here.
func (s *Service) ResolveShareToken(token string) (*TokenView, error) {
	if token == "" {
		return nil, ErrUnavailable
	}

	t, err := s.tokens.GetActive(token)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrUnavailable
	}

	view := &TokenView{EventID: t.EventID, FamilyID: t.FamilyID, AllCheckedOut: true}
	for _, id := range t.CheckinIDs {
		entry, err := s.ledger.GetByID(id)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue
		}

		if view.CheckoutCode == "" && entry.CheckoutCode != nil {
			view.CheckoutCode = *entry.CheckoutCode
			view.CheckinTime = entry.CheckinTime
		}

		kid, err := s.families.GetKidByID(entry.KidID)
		if err != nil {
			return nil, err
		}
		name := ""
		if kid != nil {
			name = kid.Name
		}

		open := entry.Open()
		view.Kids = append(view.Kids, TokenKid{KidID: entry.KidID, Name: name, CheckedOut: !open})
		if open {
			view.AllCheckedOut = false
		}
	}

	if len(view.Kids) == 0 || view.CheckoutCode == "" {
		return nil, ErrUnavailable
	}
	return view, nil
}

// Siblings returns other kids of the kid's family with an open entry for the
// event. Read-only.
func (s *Service) Siblings(kidID, eventID int64) ([]model.Kid, error) {
	if kidID == 0 || eventID == 0 {
		return nil, ErrValidation
	}

	kid, err := s.families.GetKidByID(kidID)
	if err != nil {
		return nil, err
	}
	if kid == nil {
		return nil, ErrNotFound
	}

	return s.ledger.OpenSiblings(kidID, eventID)
}

// ShareURL embeds a token into the link a QR renderer consumes.
func (s *Service) ShareURL(token string) string {
	return s.baseURL + "/share/" + token
}
