package repository

// Schema definitions for Banyan. The rules table uses a driver-specific
// autoincrement ID; everything else is portable between SQLite and
// PostgreSQL.

const schemaRulesSQLite = `
CREATE TABLE IF NOT EXISTS rules (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT,
    conditions TEXT NOT NULL,
    action TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    priority INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rules_active ON rules(active);
CREATE INDEX IF NOT EXISTS idx_rules_priority ON rules(priority, id);
`

const schemaRulesPostgres = `
CREATE TABLE IF NOT EXISTS rules (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    conditions TEXT NOT NULL,
    action TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    priority INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rules_active ON rules(active);
CREATE INDEX IF NOT EXISTS idx_rules_priority ON rules(priority, id);
`

const schemaEvaluations = `
CREATE TABLE IF NOT EXISTS evaluations (
    id TEXT PRIMARY KEY,
    claim_id TEXT,
    record TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    results TEXT NOT NULL,
    recommendations TEXT NOT NULL,
    metadata TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evaluations_claim ON evaluations(claim_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_timestamp ON evaluations(timestamp);
`

// SchemasFor returns all schema statements for a driver, in order.
func SchemasFor(driver string) []string {
	rules := schemaRulesSQLite
	if driver == "postgres" {
		rules = schemaRulesPostgres
	}
	return []string{
		rules,
		schemaEvaluations,
	}
}
