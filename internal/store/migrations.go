package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Regions table - named minimap rectangles within the capture frame
		`CREATE TABLE IF NOT EXISTS regions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			active INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Profiles table - one HSV acceptance window per marker class
		`CREATE TABLE IF NOT EXISTS profiles (
			label TEXT PRIMARY KEY CHECK(label IN ('player', 'other')),
			h_lower INTEGER NOT NULL,
			s_lower INTEGER NOT NULL,
			v_lower INTEGER NOT NULL,
			h_upper INTEGER NOT NULL,
			s_upper INTEGER NOT NULL,
			v_upper INTEGER NOT NULL,
			min_area INTEGER NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Index for the single-active-region lookup on every frame cycle
		`CREATE INDEX IF NOT EXISTS idx_regions_active ON regions(active)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
