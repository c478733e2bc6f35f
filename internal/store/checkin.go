package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/rollcall/internal/model"
)

// ErrCodeConflict is returned when a checkout code chosen for a new check-in
// group turns out to be held by another family's open entries at insert time.
// Callers retry the whole issuance once.
var ErrCodeConflict = errors.New("checkout code already in use for this event")

// CheckinStore is the append-mostly ledger of check-in rows. Rows are closed
// by setting checkout_time exactly once and are never deleted.
type CheckinStore struct {
	db *sql.DB
}

func NewCheckinStore(db *sql.DB) *CheckinStore {
	return &CheckinStore{db: db}
}

func scanCheckin(scanner interface{ Scan(...any) error }) (*model.Checkin, error) {
	var c model.Checkin
	var checkoutTime sql.NullTime
	var checkoutCode sql.NullString

	err := scanner.Scan(
		&c.ID, &c.KidID, &c.AdultID, &c.EventID,
		&c.CheckinTime, &checkoutTime, &checkoutCode,
	)
	if err != nil {
		return nil, err
	}

	if checkoutTime.Valid {
		c.CheckoutTime = &checkoutTime.Time
	}
	if checkoutCode.Valid {
		c.CheckoutCode = &checkoutCode.String
	}
	return &c, nil
}

const checkinCols = `id, kid_id, adult_id, event_id, checkin_time, checkout_time, checkout_code`

func (s *CheckinStore) GetByID(id int64) (*model.Checkin, error) {
	row := s.db.QueryRow(`SELECT `+checkinCols+` FROM checkins WHERE id = ?`, id)
	c, err := scanCheckin(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkin: %w", err)
	}
	return c, nil
}

// GetOpen returns the kid's open check-in for the event, or nil.
func (s *CheckinStore) GetOpen(kidID, eventID int64) (*model.Checkin, error) {
	row := s.db.QueryRow(
		`SELECT `+checkinCols+` FROM checkins WHERE kid_id = ? AND event_id = ? AND checkout_time IS NULL`,
		kidID, eventID,
	)
	c, err := scanCheckin(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open checkin: %w", err)
	}
	return c, nil
}

// FamilyOpenCode returns the checkout code already held by the family's open
// entries for the event, or nil when the family has none. Siblings checked in
// at different times share one code, so one row is enough.
func (s *CheckinStore) FamilyOpenCode(familyID, eventID int64) (*string, error) {
	var code string
	err := s.db.QueryRow(
		`SELECT c.checkout_code FROM checkins c
		 JOIN kids k ON k.id = c.kid_id
		 WHERE k.family_id = ? AND c.event_id = ? AND c.checkout_time IS NULL AND c.checkout_code IS NOT NULL
		 LIMIT 1`,
		familyID, eventID,
	).Scan(&code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("family open code: %w", err)
	}
	return &code, nil
}

// CodeInUse reports whether any open entry in the event carries the code.
func (s *CheckinStore) CodeInUse(eventID int64, code string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM checkins WHERE event_id = ? AND checkout_code = ? AND checkout_time IS NULL`,
		eventID, code,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("code in use: %w", err)
	}
	return count > 0, nil
}

// InsertGroup inserts open check-in rows for the given kids in one
// transaction, all carrying the same checkout code. Kids that already have an
// open entry for the event are skipped. Before inserting, the code is
// re-checked against open entries of other families; a hit returns
// ErrCodeConflict so the caller can reissue — the read-then-generate in the
// issuer is not atomic with this insert.
func (s *CheckinStore) InsertGroup(kidIDs []int64, adultID, eventID int64, code *string, now time.Time) ([]model.Checkin, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin insert group: %w", err)
	}
	defer tx.Rollback()

	if code != nil {
		var count int
		err := tx.QueryRow(
			`SELECT COUNT(*) FROM checkins c
			 JOIN kids k ON k.id = c.kid_id
			 WHERE c.event_id = ? AND c.checkout_code = ? AND c.checkout_time IS NULL
			   AND k.family_id != (SELECT family_id FROM kids WHERE id = ?)`,
			eventID, *code, kidIDs[0],
		).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("check code conflict: %w", err)
		}
		if count > 0 {
			return nil, ErrCodeConflict
		}
	}

	var entries []model.Checkin
	for _, kidID := range kidIDs {
		var existing int64
		err := tx.QueryRow(
			`SELECT id FROM checkins WHERE kid_id = ? AND event_id = ? AND checkout_time IS NULL`,
			kidID, eventID,
		).Scan(&existing)
		if err == nil {
			continue // already checked in
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("check existing checkin: %w", err)
		}

		var codeVal sql.NullString
		if code != nil {
			codeVal = sql.NullString{String: *code, Valid: true}
		}
		result, err := tx.Exec(
			`INSERT INTO checkins (kid_id, adult_id, event_id, checkin_time, checkout_code) VALUES (?, ?, ?, ?, ?)`,
			kidID, adultID, eventID, now.UTC(), codeVal,
		)
		if err != nil {
			return nil, fmt.Errorf("insert checkin: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}

		row := tx.QueryRow(`SELECT `+checkinCols+` FROM checkins WHERE id = ?`, id)
		c, err := scanCheckin(row)
		if err != nil {
			return nil, fmt.Errorf("scan inserted checkin: %w", err)
		}
		entries = append(entries, *c)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert group: %w", err)
	}
	return entries, nil
}

// CloseOpen sets checkout_time on the kid's open entry for the event and
// returns the closed row. Returns nil when the kid has no open entry — an
// already-closed or never-checked-in kid is not an error.
func (s *CheckinStore) CloseOpen(kidID, eventID int64, now time.Time) (*model.Checkin, error) {
	open, err := s.GetOpen(kidID, eventID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, nil
	}

	_, err = s.db.Exec(
		`UPDATE checkins SET checkout_time = ? WHERE id = ? AND checkout_time IS NULL`,
		now.UTC(), open.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("close checkin: %w", err)
	}
	return s.GetByID(open.ID)
}

// OpenSiblings returns other kids of the same family with an open entry for
// the same event, for the group-checkout prompt.
func (s *CheckinStore) OpenSiblings(kidID, eventID int64) ([]model.Kid, error) {
	rows, err := s.db.Query(
		`SELECT `+prefixedKidCols+` FROM kids k
		 JOIN checkins c ON c.kid_id = k.id
		 WHERE k.family_id = (SELECT family_id FROM kids WHERE id = ?)
		   AND k.id != ? AND c.event_id = ? AND c.checkout_time IS NULL
		 ORDER BY k.name ASC`,
		kidID, kidID, eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("open siblings: %w", err)
	}
	defer rows.Close()

	var kids []model.Kid
	for rows.Next() {
		k, err := scanKid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sibling: %w", err)
		}
		kids = append(kids, *k)
	}
	return kids, rows.Err()
}

const prefixedKidCols = `k.id, k.family_id, k.name, k.notes, k.created_at`

// ListOpenByEvent returns all open entries for an event, oldest first.
func (s *CheckinStore) ListOpenByEvent(eventID int64) ([]model.Checkin, error) {
	rows, err := s.db.Query(
		`SELECT `+checkinCols+` FROM checkins WHERE event_id = ? AND checkout_time IS NULL ORDER BY checkin_time ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list open checkins: %w", err)
	}
	defer rows.Close()

	var entries []model.Checkin
	for rows.Next() {
		c, err := scanCheckin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkin: %w", err)
		}
		entries = append(entries, *c)
	}
	return entries, rows.Err()
}
