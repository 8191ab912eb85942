package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ayusman/maptracker/internal/detector"
)

// ProfileRepository persists the calibrated color profile per marker
// class. Malformed profiles are rejected before they reach a row, so a
// loaded profile never fails validation mid-run.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

// Get retrieves the profile for one marker class.
func (r *ProfileRepository) Get(label detector.MarkerClass) (detector.ColorProfile, error) {
	p := detector.ColorProfile{Label: label}
	err := r.db.QueryRow(
		`SELECT h_lower, s_lower, v_lower, h_upper, s_upper, v_upper, min_area
		 FROM profiles WHERE label = ?`,
		string(label),
	).Scan(&p.Lower.H, &p.Lower.S, &p.Lower.V, &p.Upper.H, &p.Upper.S, &p.Upper.V, &p.MinArea)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return detector.ColorProfile{}, ErrNotFound
		}
		return detector.ColorProfile{}, err
	}
	return p, nil
}

// GetAll loads the full profile set. ErrNotFound when either class has
// no stored profile yet.
func (r *ProfileRepository) GetAll() (detector.ProfileSet, error) {
	var set detector.ProfileSet
	for _, class := range detector.Classes {
		p, err := r.Get(class)
		if err != nil {
			return detector.ProfileSet{}, err
		}
		set = set.With(p)
	}
	return set, nil
}

// Upsert validates and writes the profile for its class.
func (r *ProfileRepository) Upsert(p detector.ColorProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	_, err := r.db.Exec(
		`INSERT INTO profiles (label, h_lower, s_lower, v_lower, h_upper, s_upper, v_upper, min_area, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(label) DO UPDATE SET
			h_lower = excluded.h_lower,
			s_lower = excluded.s_lower,
			v_lower = excluded.v_lower,
			h_upper = excluded.h_upper,
			s_upper = excluded.s_upper,
			v_upper = excluded.v_upper,
			min_area = excluded.min_area,
			updated_at = excluded.updated_at`,
		string(p.Label), p.Lower.H, p.Lower.S, p.Lower.V,
		p.Upper.H, p.Upper.S, p.Upper.V, p.MinArea, time.Now(),
	)
	return err
}

// EnsureDefaults inserts the given profiles for any class that has no
// stored row yet. Existing calibrations are never overwritten.
func (r *ProfileRepository) EnsureDefaults(set detector.ProfileSet) error {
	for _, class := range detector.Classes {
		p := set.Get(class)
		if err := p.Validate(); err != nil {
			return err
		}
		_, err := r.db.Exec(
			`INSERT OR IGNORE INTO profiles (label, h_lower, s_lower, v_lower, h_upper, s_upper, v_upper, min_area, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(p.Label), p.Lower.H, p.Lower.S, p.Lower.V,
			p.Upper.H, p.Upper.S, p.Upper.V, p.MinArea, time.Now(),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
