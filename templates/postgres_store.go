package templates

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL error code for unique_violation.
const uniqueViolation = "23505"

// PostgresTemplateStore implements TemplateStore backed by PostgreSQL. The
// list-valued fields are stored as JSONB columns.
type PostgresTemplateStore struct {
	db *sql.DB
}

// NewPostgresTemplateStore creates a new PostgreSQL-backed TemplateStore
func NewPostgresTemplateStore(db *sql.DB) *PostgresTemplateStore {
	return &PostgresTemplateStore{db: db}
}

const templateColumns = `id, section, slug, name, formula, allow_fractions,
	variables, conditions, options, answers, active, created_at, updated_at`

type jsonColumns struct {
	variables, conditions, options, answers []byte
}

func encodeColumns(t *Template) (jsonColumns, error) {
	var (
		c   jsonColumns
		err error
	)
	if c.variables, err = json.Marshal(nonNil(t.Variables)); err != nil {
		return c, fmt.Errorf("failed to encode variables: %w", err)
	}
	if c.conditions, err = json.Marshal(nonNil(t.Conditions)); err != nil {
		return c, fmt.Errorf("failed to encode conditions: %w", err)
	}
	if c.options, err = json.Marshal(nonNil(t.Options)); err != nil {
		return c, fmt.Errorf("failed to encode options: %w", err)
	}
	if c.answers, err = json.Marshal(nonNil(t.Answers)); err != nil {
		return c, fmt.Errorf("failed to encode answers: %w", err)
	}
	return c, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*Template, error) {
	var (
		t Template
		c jsonColumns
	)
	err := row.Scan(&t.ID, &t.Section, &t.Slug, &t.Name, &t.Formula, &t.AllowFractions,
		&c.variables, &c.conditions, &c.options, &c.answers,
		&t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(c.variables, &t.Variables); err != nil {
		return nil, fmt.Errorf("failed to decode variables of %s: %w", t.ID, err)
	}
	if err := json.Unmarshal(c.conditions, &t.Conditions); err != nil {
		return nil, fmt.Errorf("failed to decode conditions of %s: %w", t.ID, err)
	}
	if err := json.Unmarshal(c.options, &t.Options); err != nil {
		return nil, fmt.Errorf("failed to decode options of %s: %w", t.ID, err)
	}
	if err := json.Unmarshal(c.answers, &t.Answers); err != nil {
		return nil, fmt.Errorf("failed to decode answers of %s: %w", t.ID, err)
	}
	return &t, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// Add inserts a new template into the database
func (s *PostgresTemplateStore) Add(t *Template) error {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM templates WHERE id = $1)
	`, t.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check template existence: %w", err)
	}
	if exists {
		return fmt.Errorf("template %s: %w", t.ID, ErrAlreadyExists)
	}

	cols, err := encodeColumns(t)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	_, err = s.db.Exec(`
		INSERT INTO templates (`+templateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, t.ID, t.Section, t.Slug, t.Name, t.Formula, t.AllowFractions,
		cols.variables, cols.conditions, cols.options, cols.answers,
		t.Active, now, now)
	if isUniqueViolation(err) {
		return fmt.Errorf("template %s/%s: %w", t.Section, t.Slug, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert template: %w", err)
	}

	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// Get retrieves a template by ID
func (s *PostgresTemplateStore) Get(id string) (*Template, error) {
	t, err := scanTemplate(s.db.QueryRow(`
		SELECT `+templateColumns+`
		FROM templates
		WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return t, nil
}

// List returns all templates
func (s *PostgresTemplateStore) List() ([]*Template, error) {
	return s.query(`
		SELECT ` + templateColumns + `
		FROM templates
		ORDER BY created_at ASC, id ASC
	`)
}

// ListActive returns all active templates
func (s *PostgresTemplateStore) ListActive() ([]*Template, error) {
	return s.query(`
		SELECT ` + templateColumns + `
		FROM templates
		WHERE active = true
		ORDER BY created_at ASC, id ASC
	`)
}

func (s *PostgresTemplateStore) query(q string) ([]*Template, error) {
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var list []*Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		list = append(list, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}

	return list, nil
}

// Update modifies an existing template, preserving CreatedAt.
func (s *PostgresTemplateStore) Update(t *Template) error {
	cols, err := encodeColumns(t)
	if err != nil {
		return err
	}

	updatedAt := time.Now().UTC().Truncate(time.Microsecond)
	err = s.db.QueryRow(`
		UPDATE templates
		SET section = $1, slug = $2, name = $3, formula = $4, allow_fractions = $5,
			variables = $6, conditions = $7, options = $8, answers = $9,
			active = $10, updated_at = $11
		WHERE id = $12
		RETURNING created_at
	`, t.Section, t.Slug, t.Name, t.Formula, t.AllowFractions,
		cols.variables, cols.conditions, cols.options, cols.answers,
		t.Active, updatedAt, t.ID).Scan(&t.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("template %s: %w", t.ID, ErrNotFound)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("template %s/%s: %w", t.Section, t.Slug, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}

	t.UpdatedAt = updatedAt
	return nil
}

// Delete removes a template from the database
func (s *PostgresTemplateStore) Delete(id string) error {
	result, err := s.db.Exec(`
		DELETE FROM templates
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("template %s: %w", id, ErrNotFound)
	}

	return nil
}
