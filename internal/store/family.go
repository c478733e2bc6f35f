package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/rollcall/internal/model"
)

type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

func scanFamily(scanner interface{ Scan(...any) error }) (*model.Family, error) {
	var f model.Family
	err := scanner.Scan(&f.ID, &f.Name, &f.Phone, &f.AuthorizedAdults, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

const familyCols = `id, name, phone, authorized_adults, created_at`

func (s *FamilyStore) Create(name, phone, authorizedAdults string) (*model.Family, error) {
	result, err := s.db.Exec(
		`INSERT INTO families (name, phone, authorized_adults) VALUES (?, ?, ?)`,
		name, phone, authorizedAdults,
	)
	if err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyStore) GetByID(id int64) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families WHERE id = ?`, id)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return f, nil
}

func (s *FamilyStore) List() ([]model.Family, error) {
	rows, err := s.db.Query(`SELECT ` + familyCols + ` FROM families ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	defer rows.Close()

	var families []model.Family
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		families = append(families, *f)
	}
	return families, rows.Err()
}

// --- Kid methods ---

func scanKid(scanner interface{ Scan(...any) error }) (*model.Kid, error) {
	var k model.Kid
	err := scanner.Scan(&k.ID, &k.FamilyID, &k.Name, &k.Notes, &k.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

const kidCols = `id, family_id, name, notes, created_at`

func (s *FamilyStore) CreateKid(familyID int64, name, notes string) (*model.Kid, error) {
	result, err := s.db.Exec(
		`INSERT INTO kids (family_id, name, notes) VALUES (?, ?, ?)`,
		familyID, name, notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert kid: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetKidByID(id)
}

func (s *FamilyStore) GetKidByID(id int64) (*model.Kid, error) {
	row := s.db.QueryRow(`SELECT `+kidCols+` FROM kids WHERE id = ?`, id)
	k, err := scanKid(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get kid: %w", err)
	}
	return k, nil
}

func (s *FamilyStore) ListKidsByFamily(familyID int64) ([]model.Kid, error) {
	rows, err := s.db.Query(`SELECT `+kidCols+` FROM kids WHERE family_id = ? ORDER BY name ASC`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list kids: %w", err)
	}
	defer rows.Close()

	var kids []model.Kid
	for rows.Next() {
		k, err := scanKid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan kid: %w", err)
		}
		kids = append(kids, *k)
	}
	return kids, rows.Err()
}

// --- Adult methods ---

func scanAdult(scanner interface{ Scan(...any) error }) (*model.Adult, error) {
	var a model.Adult
	err := scanner.Scan(&a.ID, &a.FamilyID, &a.Name, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const adultCols = `id, family_id, name, created_at`

func (s *FamilyStore) CreateAdult(familyID int64, name string) (*model.Adult, error) {
	result, err := s.db.Exec(
		`INSERT INTO adults (family_id, name) VALUES (?, ?)`,
		familyID, name,
	)
	if err != nil {
		return nil, fmt.Errorf("insert adult: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetAdultByID(id)
}

func (s *FamilyStore) GetAdultByID(id int64) (*model.Adult, error) {
	row := s.db.QueryRow(`SELECT `+adultCols+` FROM adults WHERE id = ?`, id)
	a, err := scanAdult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get adult: %w", err)
	}
	return a, nil
}

func (s *FamilyStore) ListAdultsByFamily(familyID int64) ([]model.Adult, error) {
	rows, err := s.db.Query(`SELECT `+adultCols+` FROM adults WHERE family_id = ? ORDER BY name ASC`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list adults: %w", err)
	}
	defer rows.Close()

	var adults []model.Adult
	for rows.Next() {
		a, err := scanAdult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan adult: %w", err)
		}
		adults = append(adults, *a)
	}
	return adults, rows.Err()
}
