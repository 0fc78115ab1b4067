// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-gov/banyan/internal/domain"
	"github.com/opensource-gov/banyan/internal/engine"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers. Rules are validated at this
// write boundary so malformed condition trees never reach the evaluator
// through normal operation.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range SchemasFor(r.driver) {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

const ruleColumns = "id, name, description, conditions, action, active, priority, created_at, updated_at"

// GetActiveRules returns all active rules ordered by priority then ID.
func (r *SQLRepository) GetActiveRules(ctx context.Context) ([]*domain.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM rules
		WHERE active = 1
		ORDER BY priority, id
	`
	return r.queryRules(ctx, query)
}

// ListRules returns all rules regardless of active state.
func (r *SQLRepository) ListRules(ctx context.Context) ([]*domain.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM rules
		ORDER BY priority, id
	`
	return r.queryRules(ctx, query)
}

func (r *SQLRepository) queryRules(ctx context.Context, query string, args ...any) ([]*domain.Rule, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// GetRule retrieves a rule by ID.
func (r *SQLRepository) GetRule(ctx context.Context, id int64) (*domain.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM rules
		WHERE id = ?
	`

	rule, err := scanRule(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return rule, nil
}

// CreateRule validates and persists a new rule, returning it with the
// assigned ID and timestamps.
func (r *SQLRepository) CreateRule(ctx context.Context, rule *domain.Rule) (*domain.Rule, error) {
	if err := engine.ValidateRule(rule); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return nil, fmt.Errorf("%w: conditions not serializable: %v", ErrInvalidInput, err)
	}

	now := time.Now().UTC()

	stored := *rule
	stored.CreatedAt = now
	stored.UpdatedAt = now

	query := `
		INSERT INTO rules (name, description, conditions, action, active, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	args := []any{
		stored.Name, stored.Description, string(conditions),
		stored.Action, boolToInt(stored.Active), stored.Priority,
		now, now,
	}

	if r.driver == "postgres" {
		err = r.db.QueryRowContext(ctx, r.rebind(query+" RETURNING id"), args...).Scan(&stored.ID)
		if err != nil {
			return nil, err
		}
		return &stored, nil
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	stored.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &stored, nil
}

// UpdateRule applies a partial update. The merged rule is re-validated
// before being written back, so a patch cannot corrupt a stored rule.
func (r *SQLRepository) UpdateRule(ctx context.Context, id int64, patch domain.RuleUpdate) (*domain.Rule, error) {
	rule, err := r.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		rule.Name = *patch.Name
	}
	if patch.Description != nil {
		rule.Description = *patch.Description
	}
	if patch.Conditions != nil {
		rule.Conditions = *patch.Conditions
	}
	if patch.Action != nil {
		rule.Action = *patch.Action
	}
	if patch.Active != nil {
		rule.Active = *patch.Active
	}
	if patch.Priority != nil {
		rule.Priority = *patch.Priority
	}

	if err := engine.ValidateRule(rule); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return nil, fmt.Errorf("%w: conditions not serializable: %v", ErrInvalidInput, err)
	}

	rule.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE rules
		SET name = ?, description = ?, conditions = ?, action = ?, active = ?, priority = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.Name, rule.Description, string(conditions),
		rule.Action, boolToInt(rule.Active), rule.Priority,
		rule.UpdatedAt, id,
	)
	if err != nil {
		return nil, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNotFound
	}

	return rule, nil
}

// DeleteRule removes a rule permanently.
func (r *SQLRepository) DeleteRule(ctx context.Context, id int64) error {
	query := `DELETE FROM rules WHERE id = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveEvaluation stores an evaluation audit record.
func (r *SQLRepository) SaveEvaluation(ctx context.Context, eval *domain.Evaluation) error {
	if eval.ID == "" {
		return fmt.Errorf("%w: evaluation ID is required", ErrInvalidInput)
	}

	record, _ := json.Marshal(eval.Record)
	results, _ := json.Marshal(eval.Results)
	recommendations, _ := json.Marshal(eval.Recommendations)
	metadata, _ := json.Marshal(eval.Metadata)

	query := `
		INSERT INTO evaluations (
			id, claim_id, record, timestamp, results, recommendations, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		eval.ID, eval.ClaimID, string(record), eval.Timestamp,
		string(results), string(recommendations), string(metadata),
	)
	return err
}

// GetEvaluation retrieves an evaluation by ID.
func (r *SQLRepository) GetEvaluation(ctx context.Context, id string) (*domain.Evaluation, error) {
	query := `
		SELECT id, claim_id, record, timestamp, results, recommendations, metadata
		FROM evaluations
		WHERE id = ?
	`

	var eval domain.Evaluation
	var record, results, recommendations, metadata string

	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(
		&eval.ID, &eval.ClaimID, &record, &eval.Timestamp,
		&results, &recommendations, &metadata,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(record), &eval.Record)
	json.Unmarshal([]byte(results), &eval.Results)
	json.Unmarshal([]byte(recommendations), &eval.Recommendations)
	json.Unmarshal([]byte(metadata), &eval.Metadata)

	return &eval, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRule(s scanner) (*domain.Rule, error) {
	var rule domain.Rule
	var description sql.NullString
	var conditions string
	var active int

	err := s.Scan(
		&rule.ID, &rule.Name, &description, &conditions,
		&rule.Action, &active, &rule.Priority,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Description = description.String
	rule.Active = active == 1

	if err := json.Unmarshal([]byte(conditions), &rule.Conditions); err != nil {
		return nil, fmt.Errorf("failed to parse conditions for rule %d: %w", rule.ID, err)
	}

	return &rule, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
