// Package domain defines the core interfaces and types for Banyan.
package domain

import (
	"context"
	"time"
)

// RuleStore is the narrow persistence contract the evaluation engine depends
// on. Ordering of GetActiveRules is a store convenience (priority, then ID)
// and is not relied on by the engine.
type RuleStore interface {
	// GetActiveRules returns all rules with Active = true.
	GetActiveRules(ctx context.Context) ([]*Rule, error)

	// GetRule returns a rule by ID, or ErrNotFound.
	GetRule(ctx context.Context, id int64) (*Rule, error)

	// CreateRule persists a new rule and returns it with the assigned ID
	// and timestamps.
	CreateRule(ctx context.Context, rule *Rule) (*Rule, error)

	// UpdateRule applies a partial update and returns the updated rule,
	// or ErrNotFound.
	UpdateRule(ctx context.Context, id int64, patch RuleUpdate) (*Rule, error)

	// DeleteRule removes a rule, or returns ErrNotFound if no row matched.
	DeleteRule(ctx context.Context, id int64) error
}

// Repository is the full persistence interface.
type Repository interface {
	RuleStore

	// ListRules returns all rules regardless of active state, ordered by
	// priority then ID. Inactive rules stay retrievable and editable.
	ListRules(ctx context.Context) ([]*Rule, error)

	// Evaluation audit trail
	SaveEvaluation(ctx context.Context, eval *Evaluation) error
	GetEvaluation(ctx context.Context, id string) (*Evaluation, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
