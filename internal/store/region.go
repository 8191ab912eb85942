package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/maptracker/internal/detector"
)

// Region is a named minimap rectangle stored in the database. At most
// one region is active; the active region is the one the detection
// pipeline crops on every frame.
type Region struct {
	ID        string
	Name      string
	X         int
	Y         int
	Width     int
	Height    int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Geometry returns the region's rectangle as a detector value.
func (r *Region) Geometry() detector.Region {
	return detector.Region{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// RegionRepository provides CRUD operations for regions.
type RegionRepository struct {
	db *sql.DB
}

// Regions returns the region repository for this store.
func (s *Store) Regions() *RegionRepository {
	return &RegionRepository{db: s.db}
}

// Create inserts a new region.
func (r *RegionRepository) Create(region *Region) error {
	if !region.Geometry().Valid() {
		return fmt.Errorf("region geometry malformed: %+v", region.Geometry())
	}

	now := time.Now()
	region.CreatedAt = now
	region.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO regions (id, name, x, y, width, height, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		region.ID, region.Name, region.X, region.Y, region.Width, region.Height,
		region.Active, region.CreatedAt, region.UpdatedAt,
	)
	return err
}

// GetByID retrieves a region by its ID.
func (r *RegionRepository) GetByID(id string) (*Region, error) {
	region := &Region{}
	err := r.db.QueryRow(
		`SELECT id, name, x, y, width, height, active, created_at, updated_at
		 FROM regions WHERE id = ?`,
		id,
	).Scan(&region.ID, &region.Name, &region.X, &region.Y, &region.Width,
		&region.Height, &region.Active, &region.CreatedAt, &region.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return region, nil
}

// GetActive retrieves the currently active region, or ErrNotFound when
// no region is active.
func (r *RegionRepository) GetActive() (*Region, error) {
	region := &Region{}
	err := r.db.QueryRow(
		`SELECT id, name, x, y, width, height, active, created_at, updated_at
		 FROM regions WHERE active = 1 LIMIT 1`,
	).Scan(&region.ID, &region.Name, &region.X, &region.Y, &region.Width,
		&region.Height, &region.Active, &region.CreatedAt, &region.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return region, nil
}

// List retrieves all regions, newest first.
func (r *RegionRepository) List() ([]*Region, error) {
	rows, err := r.db.Query(
		`SELECT id, name, x, y, width, height, active, created_at, updated_at
		 FROM regions ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regions []*Region
	for rows.Next() {
		region := &Region{}
		err := rows.Scan(&region.ID, &region.Name, &region.X, &region.Y, &region.Width,
			&region.Height, &region.Active, &region.CreatedAt, &region.UpdatedAt)
		if err != nil {
			return nil, err
		}
		regions = append(regions, region)
	}
	return regions, rows.Err()
}

// Update modifies a region's name and geometry.
func (r *RegionRepository) Update(region *Region) error {
	if !region.Geometry().Valid() {
		return fmt.Errorf("region geometry malformed: %+v", region.Geometry())
	}

	region.UpdatedAt = time.Now()
	result, err := r.db.Exec(
		`UPDATE regions SET name = ?, x = ?, y = ?, width = ?, height = ?, updated_at = ?
		 WHERE id = ?`,
		region.Name, region.X, region.Y, region.Width, region.Height,
		region.UpdatedAt, region.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a region.
func (r *RegionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM regions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Activate marks the given region active and clears the flag on every
// other region, in one transaction, so exactly one region is active.
func (r *RegionRepository) Activate(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE regions SET active = 0 WHERE active = 1`); err != nil {
		return err
	}

	result, err := tx.Exec(
		`UPDATE regions SET active = 1, updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}
