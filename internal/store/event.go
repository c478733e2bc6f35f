package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/rollcall/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	err := scanner.Scan(&e.ID, &e.Name, &e.StartTime, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const eventCols = `id, name, start_time, created_at`

func (s *EventStore) Create(name string, startTime time.Time) (*model.Event, error) {
	result, err := s.db.Exec(
		`INSERT INTO events (name, start_time) VALUES (?, ?)`,
		name, startTime.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *EventStore) GetByID(id int64) (*model.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (s *EventStore) List() ([]model.Event, error) {
	rows, err := s.db.Query(`SELECT ` + eventCols + ` FROM events ORDER BY start_time ASC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Nearest returns the event whose start time is closest to now, or nil when
// the calendar is empty. Used by kiosks to pick a default event.
func (s *EventStore) Nearest(now time.Time) (*model.Event, error) {
	row := s.db.QueryRow(
		`SELECT `+eventCols+` FROM events ORDER BY ABS(strftime('%s', start_time) - strftime('%s', ?)) ASC LIMIT 1`,
		now.UTC(),
	)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("nearest event: %w", err)
	}
	return e, nil
}
