package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/rollcall/internal/model"
)

const shareTokenTTL = 24 * time.Hour

// ShareTokenStore issues and retires one-time share links. Retirement is
// lazy: used and expired rows are purged on the next lookup rather than by a
// scheduled job.
type ShareTokenStore struct {
	db *sql.DB
}

func NewShareTokenStore(db *sql.DB) *ShareTokenStore {
	return &ShareTokenStore{db: db}
}

func scanShareToken(scanner interface{ Scan(...any) error }) (*model.ShareToken, error) {
	var t model.ShareToken
	var checkinIDs string
	var used int

	err := scanner.Scan(
		&t.ID, &t.Token, &t.FamilyID, &t.EventID, &checkinIDs,
		&t.CreatedAt, &t.ExpiresAt, &used,
	)
	if err != nil {
		return nil, err
	}

	t.Used = used != 0
	t.CheckinIDs, err = splitIDs(checkinIDs)
	if err != nil {
		return nil, fmt.Errorf("parse checkin ids: %w", err)
	}
	return &t, nil
}

const shareTokenCols = `id, token, family_id, event_id, checkin_ids, created_at, expires_at, used`

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func splitIDs(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, len(parts))
	for i, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// Issue creates a share token covering the given check-in rows with a
// crypto-random URL-safe identifier and a 24-hour expiry.
func (s *ShareTokenStore) Issue(familyID, eventID int64, checkinIDs []int64) (*model.ShareToken, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate share token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	now := time.Now().UTC()
	result, err := s.db.Exec(
		`INSERT INTO share_tokens (token, family_id, event_id, checkin_ids, created_at, expires_at, used)
		 VALUES (?, ?, ?, ?, ?, ?, 0)`,
		token, familyID, eventID, joinIDs(checkinIDs), now, now.Add(shareTokenTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("insert share token: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+shareTokenCols+` FROM share_tokens WHERE id = ?`, id)
	t, err := scanShareToken(row)
	if err != nil {
		return nil, fmt.Errorf("scan share token: %w", err)
	}
	return t, nil
}

// GetActive purges retired tokens, then returns the live token or nil.
// Expired, used, and never-existed all collapse to nil so a caller cannot
// probe which tokens ever existed.
func (s *ShareTokenStore) GetActive(token string) (*model.ShareToken, error) {
	if _, err := s.PurgeRetired(); err != nil {
		return nil, err
	}

	row := s.db.QueryRow(
		`SELECT `+shareTokenCols+` FROM share_tokens WHERE token = ? AND used = 0 AND expires_at > ?`,
		token, time.Now().UTC(),
	)
	t, err := scanShareToken(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get share token: %w", err)
	}
	return t, nil
}

// ListActive returns all unused, unexpired tokens.
func (s *ShareTokenStore) ListActive() ([]model.ShareToken, error) {
	rows, err := s.db.Query(
		`SELECT `+shareTokenCols+` FROM share_tokens WHERE used = 0 AND expires_at > ?`,
		time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list active share tokens: %w", err)
	}
	defer rows.Close()

	var tokens []model.ShareToken
	for rows.Next() {
		t, err := scanShareToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan share token: %w", err)
		}
		tokens = append(tokens, *t)
	}
	return tokens, rows.Err()
}

// MarkUsed flips the token to used. Terminal; the next GetActive purges it.
func (s *ShareTokenStore) MarkUsed(id int64) error {
	_, err := s.db.Exec(`UPDATE share_tokens SET used = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark share token used: %w", err)
	}
	return nil
}

// PurgeRetired deletes used and expired tokens and returns the count removed.
func (s *ShareTokenStore) PurgeRetired() (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM share_tokens WHERE used = 1 OR expires_at <= ?`,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("purge share tokens: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
