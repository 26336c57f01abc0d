package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/laporpak-api/internal/models"
	"github.com/noah-isme/laporpak-api/pkg/database"
)

// ReportHistoryRepository is the append-only status ledger of reports.
type ReportHistoryRepository struct {
	db *sqlx.DB
}

// NewReportHistoryRepository constructs the repository.
func NewReportHistoryRepository(db *sqlx.DB) *ReportHistoryRepository {
	return &ReportHistoryRepository{db: db}
}

// Append inserts one ledger entry. exec may be a transaction; nil uses the pool.
func (r *ReportHistoryRepository) Append(ctx context.Context, exec sqlx.ExtContext, entry *models.ReportHistory) error {
	if exec == nil {
		exec = r.db
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = now
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	const query = `INSERT INTO report_history (id, report_id, status, notes, changed_by, changed_at, created_at)
	VALUES (:id, :report_id, :status, :notes, :changed_by, :changed_at, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, entry); err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("append report history: %w", ErrForeignReference)
		}
		return fmt.Errorf("append report history: %w", err)
	}
	return nil
}

// ListByReport returns the ledger of a report oldest first with actor names resolved.
func (r *ReportHistoryRepository) ListByReport(ctx context.Context, reportID string) ([]models.ReportHistory, error) {
	const query = `SELECT h.id, h.report_id, h.status, h.notes, h.changed_by, h.changed_at, h.created_at,
       u.name AS changed_by_name, u.role AS changed_by_role
	FROM report_history h
	LEFT JOIN users u ON u.id = h.changed_by
	WHERE h.report_id = $1
	ORDER BY h.changed_at ASC, h.created_at ASC`
	entries := []models.ReportHistory{}
	if err := r.db.SelectContext(ctx, &entries, query, reportID); err != nil {
		return nil, fmt.Errorf("list report history: %w", err)
	}
	return entries, nil
}
