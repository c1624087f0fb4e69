// internal/infra/database/postgres_template_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"reminder_service/internal/domain/reminder"
	"reminder_service/internal/infra/templates"
)

// PostgresTemplateRepository renders templates stored in reminder_templates.
type PostgresTemplateRepository struct {
	db *sql.DB
}

func NewPostgresTemplateRepository(db *sql.DB) *PostgresTemplateRepository {
	return &PostgresTemplateRepository{db: db}
}

// Render implements reminder.TemplateRenderer. A missing or disabled row is a skip.
func (r *PostgresTemplateRepository) Render(ctx context.Context, key string, vars map[string]string) (reminder.Message, bool, error) {
	query := `SELECT subject, body, enabled FROM reminder_templates WHERE key = $1`
	var (
		subject, body string
		enabled       bool
	)
	err := r.db.QueryRowContext(ctx, query, key).Scan(&subject, &body, &enabled)
	if err != nil {
		if err == sql.ErrNoRows {
			return reminder.Message{}, false, nil
		}
		return reminder.Message{}, false, fmt.Errorf("error loading template %q: %w", key, err)
	}
	if !enabled {
		return reminder.Message{}, false, nil
	}
	return reminder.Message{
		Subject: templates.Apply(subject, vars),
		Body:    templates.Apply(body, vars),
	}, true, nil
}

// Upsert creates or replaces a template.
func (r *PostgresTemplateRepository) Upsert(ctx context.Context, key string, t templates.Template) error {
	query := `INSERT INTO reminder_templates (key, subject, body, enabled, updated_at)
              VALUES ($1, $2, $3, $4, NOW())
              ON CONFLICT (key) DO UPDATE SET subject = EXCLUDED.subject, body = EXCLUDED.body,
                  enabled = EXCLUDED.enabled, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, key, t.Subject, t.Body, t.IsEnabled()); err != nil {
		return fmt.Errorf("error saving template %q: %w", key, err)
	}
	return nil
}

// ImportCatalog upserts every entry of a file catalog and returns how many were written.
func (r *PostgresTemplateRepository) ImportCatalog(ctx context.Context, c *templates.Catalog) (int, error) {
	n := 0
	for _, key := range c.Keys() {
		t, _ := c.Get(key)
		if err := r.Upsert(ctx, key, t); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
