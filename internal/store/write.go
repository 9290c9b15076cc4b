package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one audited validation run.
type Run struct {
	ID                string    `json:"id"`
	ExprFingerprint   string    `json:"expr_fingerprint"`
	ReportFingerprint string    `json:"report_fingerprint"`
	Expression        string    `json:"expression"`
	ViolationCount    int       `json:"violation_count"`
	ReportJSON        string    `json:"report"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewRunID generates a time-ordered run identifier.
// Uses github.com/google/uuid for RFC 4122 compliant UUIDv7.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// RecordRun inserts a run into the audit log.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - re-recording the
// same run id is silently ignored.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("record run: empty id")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, expr_fingerprint, report_fingerprint, expression, violation_count, report, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.ExprFingerprint,
		run.ReportFingerprint,
		run.Expression,
		run.ViolationCount,
		run.ReportJSON,
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	return nil
}
