package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/l2laihub/portrait-prompt-engine/internal/template"
)

// SQLiteStore persists template definitions in SQLite. Structured fields
// (variables, theme, advanced options) are stored as JSON columns.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dbPath, creating the schema if needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		template TEXT NOT NULL,
		variables TEXT NOT NULL DEFAULT '{}', -- JSON object: variable id -> spec
		theme TEXT, -- JSON object or NULL
		advanced TEXT, -- JSON object or NULL
		version INTEGER NOT NULL DEFAULT 1,
		is_default INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_templates_type ON templates(type);
	CREATE INDEX IF NOT EXISTS idx_templates_default ON templates(type, is_default);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*template.Definition, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, type, template, variables, theme, advanced, version, is_default FROM templates WHERE id = ?`, id)
	return scanDefinition(row)
}

func (s *SQLiteStore) GetDefault(ctx context.Context, portraitType template.PortraitType) (*template.Definition, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, type, template, variables, theme, advanced, version, is_default
		 FROM templates WHERE type = ? AND is_default = 1 ORDER BY id LIMIT 1`, string(portraitType))
	return scanDefinition(row)
}

func (s *SQLiteStore) List(ctx context.Context, portraitType template.PortraitType) ([]*template.Definition, error) {
	query := `SELECT id, name, type, template, variables, theme, advanced, version, is_default FROM templates`
	args := []any{}
	if portraitType != "" {
		query += ` WHERE type = ?`
		args = append(args, string(portraitType))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []*template.Definition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

func (s *SQLiteStore) Put(ctx context.Context, def *template.Definition) error {
	variables, err := json.Marshal(def.Variables)
	if err != nil {
		return fmt.Errorf("marshal variables: %w", err)
	}
	theme, err := marshalNullable(def.Theme)
	if err != nil {
		return fmt.Errorf("marshal theme: %w", err)
	}
	advanced, err := marshalNullable(def.Advanced)
	if err != nil {
		return fmt.Errorf("marshal advanced options: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)

	var version int
	err = s.db.QueryRowContext(ctx, `SELECT version FROM templates WHERE id = ?`, def.ID).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		version = def.Version
		if version == 0 {
			version = 1
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO templates (id, name, type, template, variables, theme, advanced, version, is_default, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			def.ID, def.Name, string(def.Type), def.Template, string(variables), theme, advanced, version, boolToInt(def.IsDefault), now, now)
		return err
	case err != nil:
		return err
	default:
		_, err = s.db.ExecContext(ctx,
			`UPDATE templates SET name = ?, type = ?, template = ?, variables = ?, theme = ?, advanced = ?, version = ?, is_default = ?, updated_at = ?
			 WHERE id = ?`,
			def.Name, string(def.Type), def.Template, string(variables), theme, advanced, version+1, boolToInt(def.IsDefault), now, def.ID)
		return err
	}
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (*template.Definition, error) {
	var def template.Definition
	var typ, variables string
	var theme, advanced sql.NullString
	var isDefault int

	err := row.Scan(&def.ID, &def.Name, &typ, &def.Template, &variables, &theme, &advanced, &def.Version, &isDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	def.Type = template.PortraitType(typ)
	def.IsDefault = isDefault != 0

	if variables != "" {
		if err := json.Unmarshal([]byte(variables), &def.Variables); err != nil {
			return nil, fmt.Errorf("unmarshal variables for %s: %w", def.ID, err)
		}
	}
	if theme.Valid && theme.String != "" {
		if err := json.Unmarshal([]byte(theme.String), &def.Theme); err != nil {
			return nil, fmt.Errorf("unmarshal theme for %s: %w", def.ID, err)
		}
	}
	if advanced.Valid && advanced.String != "" {
		if err := json.Unmarshal([]byte(advanced.String), &def.Advanced); err != nil {
			return nil, fmt.Errorf("unmarshal advanced options for %s: %w", def.ID, err)
		}
	}
	return &def, nil
}

func marshalNullable(v any) (sql.NullString, error) {
	switch t := v.(type) {
	case *template.ThemeConfig:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *template.AdvancedOptions:
		if t == nil {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
