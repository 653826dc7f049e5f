package database

import (
	"fmt"

	"newswire/internal/source"
)

// SeedRegistry upserts the configured categories and sources and binds
// their row IDs back onto the registry. Called once at startup; sources
// removed from config keep their rows so old articles stay attributable.
func (db *DB) SeedRegistry(reg *source.Registry) error {
	categoryIDs := make(map[string]int64)
	for _, name := range reg.Categories() {
		id, err := db.upsertCategory(name)
		if err != nil {
			return fmt.Errorf("seeding category %q: %w", name, err)
		}
		categoryIDs[name] = id
	}

	for _, s := range reg.All() {
		catID, ok := categoryIDs[s.Category]
		if !ok {
			return fmt.Errorf("source %q references unknown category %q", s.Name, s.Category)
		}
		id, err := db.upsertSource(s.Name, string(s.Kind), s.Endpoint, catID)
		if err != nil {
			return fmt.Errorf("seeding source %q: %w", s.Name, err)
		}
		reg.SetID(s.Name, id)
	}

	return nil
}

func (db *DB) upsertCategory(name string) (int64, error) {
	if _, err := db.conn.Exec(
		`INSERT INTO categories (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name,
	); err != nil {
		return 0, err
	}
	var id int64
	err := db.conn.QueryRow(`SELECT id FROM categories WHERE name = ?`, name).Scan(&id)
	return id, err
}

func (db *DB) upsertSource(name, kind, endpoint string, categoryID int64) (int64, error) {
	if _, err := db.conn.Exec(
		`INSERT INTO sources (name, kind, endpoint, category_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET kind = excluded.kind,
			endpoint = excluded.endpoint, category_id = excluded.category_id`,
		name, kind, endpoint, categoryID,
	); err != nil {
		return 0, err
	}
	var id int64
	err := db.conn.QueryRow(`SELECT id FROM sources WHERE name = ?`, name).Scan(&id)
	return id, err
}

// GetCategories returns the persisted category name to ID mapping.
func (db *DB) GetCategories() (map[string]int64, error) {
	rows, err := db.conn.Query(`SELECT id, name FROM categories`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[name] = id
	}
	return out, rows.Err()
}

// GetSources returns all persisted source registry rows.
func (db *DB) GetSources() ([]SourceRow, error) {
	rows, err := db.conn.Query(
		`SELECT id, name, kind, endpoint, category_id FROM sources ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []SourceRow
	for rows.Next() {
		var s SourceRow
		if err := rows.Scan(&s.ID, &s.Name, &s.Kind, &s.Endpoint, &s.CategoryID); err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}
