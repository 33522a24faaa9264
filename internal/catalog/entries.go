package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/layoutkit/internal/layout"
)

// ErrNotFound is returned when no layout has the requested hash.
var ErrNotFound = errors.New("layout not found")

// Entry is one recorded layout.
type Entry struct {
	Hash       string     `json:"hash"`
	Name       string     `json:"name"`
	GoType     string     `json:"go_type"`
	Backend    string     `json:"backend"`
	Seq        int64      `json:"seq"`
	Properties []Property `json:"properties"`
}

// Property is one recorded layout property.
type Property struct {
	Position    int    `json:"position"`
	Name        string `json:"name"`
	GoType      string `json:"go_type"`
	Fingerprint string `json:"fingerprint"`
}

// EntryOf describes s as an unrecorded Entry (Seq 0).
func EntryOf(s *layout.Schema) Entry {
	props := s.Properties()
	e := Entry{
		Hash:       s.Hash(),
		Name:       s.Name(),
		GoType:     s.Type().String(),
		Backend:    s.Backend(),
		Properties: make([]Property, len(props)),
	}
	for i, p := range props {
		e.Properties[i] = Property{
			Position:    p.Position,
			Name:        p.Name,
			GoType:      p.Type.String(),
			Fingerprint: p.Fingerprint,
		}
	}
	return e
}

// Record stores s unless a layout with the same hash is already recorded.
// It reports whether s was newly recorded.
func (c *Catalog) Record(ctx context.Context, s *layout.Schema) (bool, error) {
	if s == nil {
		return false, errors.New("record layout: nil schema")
	}
	e := EntryOf(s)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("record layout: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM layouts WHERE hash = ?`, e.Hash).Scan(&seq)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("record layout: %w", err)
	}

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM layouts`).Scan(&seq); err != nil {
		return false, fmt.Errorf("record layout: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO layouts (hash, name, go_type, backend, property_count, seq)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.Hash, e.Name, e.GoType, e.Backend, len(e.Properties), seq)
	if err != nil {
		return false, fmt.Errorf("record layout %s: %w", e.Name, err)
	}

	for _, p := range e.Properties {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO layout_properties (layout_hash, position, name, go_type, fingerprint)
			VALUES (?, ?, ?, ?, ?)
		`, e.Hash, p.Position, p.Name, p.GoType, p.Fingerprint)
		if err != nil {
			return false, fmt.Errorf("record layout %s: property %q: %w", e.Name, p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("record layout: %w", err)
	}
	return true, nil
}

// RecordAll records every schema in order and returns how many were new.
func (c *Catalog) RecordAll(ctx context.Context, schemas []*layout.Schema) (int, error) {
	n := 0
	for _, s := range schemas {
		added, err := c.Record(ctx, s)
		if err != nil {
			return n, err
		}
		if added {
			n++
		}
	}
	return n, nil
}

// Get returns the layout with the given hash.
func (c *Catalog) Get(ctx context.Context, hash string) (Entry, error) {
	entries, err := c.query(ctx, `WHERE hash = ?`, hash)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, hash)
	}
	return entries[0], nil
}

// FindByName returns every recorded version of the named layout, oldest first.
func (c *Catalog) FindByName(ctx context.Context, name string) ([]Entry, error) {
	return c.query(ctx, `WHERE name = ?`, name)
}

// List returns every recorded layout, oldest first.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	return c.query(ctx, "")
}

func (c *Catalog) query(ctx context.Context, where string, args ...any) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT hash, name, go_type, backend, seq
		FROM layouts
		`+where+`
		ORDER BY seq ASC, hash ASC COLLATE BINARY
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query layouts: %w", err)
	}

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Hash, &e.Name, &e.GoType, &e.Backend, &e.Seq); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan layout: %w", err)
		}
		entries = append(entries, e)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate layouts: %w", err)
	}

	// Rows must be closed first: the pool has a single connection.
	for i := range entries {
		props, err := c.properties(ctx, entries[i].Hash)
		if err != nil {
			return nil, err
		}
		entries[i].Properties = props
	}
	return entries, nil
}

func (c *Catalog) properties(ctx context.Context, hash string) ([]Property, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT position, name, go_type, fingerprint
		FROM layout_properties
		WHERE layout_hash = ?
		ORDER BY position ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query properties of %s: %w", hash, err)
	}
	defer rows.Close()

	props := []Property{}
	for rows.Next() {
		var p Property
		if err := rows.Scan(&p.Position, &p.Name, &p.GoType, &p.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan property of %s: %w", hash, err)
		}
		props = append(props, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate properties of %s: %w", hash, err)
	}
	return props, nil
}
