// Package usage persists per-request token usage for measurement.
// Usage is measured, never charged; the ledger exists so operators can see
// consumption per model, not to enforce billing.
package usage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"llmbridge/internal/models"
)

// Ledger records usage rows in a SQLite database.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger database at path, creating parent
// directories as needed.
func Open(path string) (*Ledger, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize ledger schema: %w", err)
	}
	return l, nil
}

// OpenInMemory creates an in-memory ledger (useful for testing).
func OpenInMemory() (*Ledger, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory ledger: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize ledger schema: %w", err)
	}
	return l, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS usage_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			model_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			prompt_tokens INTEGER NOT NULL,
			completion_tokens INTEGER NOT NULL,
			total_tokens INTEGER NOT NULL,
			recorded_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_usage_model
		ON usage_records(model_id, recorded_at DESC);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Record appends one usage row for the given model and operation.
func (l *Ledger) Record(ctx context.Context, modelID, operation string, u models.UsageRecord) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO usage_records
			(model_id, operation, prompt_tokens, completion_tokens, total_tokens, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		modelID, operation, u.PromptTokens, u.CompletionTokens, u.TotalTokens, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("record usage for model %s: %w", modelID, err)
	}
	return nil
}

// Total aggregates usage for one model and operation.
type Total struct {
	ModelID          string `json:"model_id"`
	Operation        string `json:"operation"`
	Requests         int    `json:"requests"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// Totals returns aggregate usage grouped by model and operation, ordered by
// descending total token count.
func (l *Ledger) Totals(ctx context.Context) ([]Total, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT model_id, operation, COUNT(*),
			SUM(prompt_tokens), SUM(completion_tokens), SUM(total_tokens)
		 FROM usage_records
		 GROUP BY model_id, operation
		 ORDER BY SUM(total_tokens) DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query usage totals: %w", err)
	}
	defer rows.Close()

	var totals []Total
	for rows.Next() {
		var t Total
		if err := rows.Scan(&t.ModelID, &t.Operation, &t.Requests,
			&t.PromptTokens, &t.CompletionTokens, &t.TotalTokens); err != nil {
			return nil, fmt.Errorf("scan usage total: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage totals: %w", err)
	}
	return totals, nil
}
