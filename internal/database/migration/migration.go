package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id            UUID        PRIMARY KEY,
  owner_id      TEXT        NOT NULL,
  title         TEXT        NOT NULL,
  description   TEXT        NOT NULL DEFAULT '',
  tags          JSONB       NOT NULL DEFAULT '[]'::jsonb,
  document_type TEXT        NOT NULL CHECK (document_type IN ('standalone', 'case')),
  case_id       TEXT        NOT NULL DEFAULT '',
  client_id     TEXT        NOT NULL DEFAULT '',
  original_name TEXT        NOT NULL,
  stored_name   TEXT        NOT NULL UNIQUE,
  mime_type     TEXT        NOT NULL,
  size_bytes    BIGINT      NOT NULL CHECK (size_bytes >= 0),
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_owner_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_owner_id ON documents (owner_id);`,
	},
	{
		Name: "create_index_documents_owner_type",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_owner_type ON documents (owner_id, document_type);`,
	},
	{
		Name: "create_index_documents_case_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_case_id ON documents (case_id);`,
	},
	{
		Name: "create_index_documents_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at);`,
	},
}

// EnsureMigrated checks for the documents table and applies the schema steps
// when it is absent. Each step is idempotent, so a partially applied run is
// safe to retry.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	var exists bool
	query := "SELECT to_regclass('public.documents') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		logger.Error("migration sentinel check failed", "error", err)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logger.Info("schema already exists, skipping migration",
			"duration_ms", time.Since(start).Milliseconds())
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			logger.Error("migration step failed",
				"migration_step", step.Name,
				"error", err)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		logger.Info("migration step applied",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds())
	}

	logger.Info("migration complete", "duration_ms", time.Since(start).Milliseconds())
	return nil
}
