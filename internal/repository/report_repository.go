package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/laporpak-api/internal/models"
	"github.com/noah-isme/laporpak-api/pkg/database"
)

const (
	defaultReportPageSize = 10
	maxReportPageSize     = 100
)

const reportColumns = `id, user_id, assigned_to, approved_by_rt, rt_approved_at, rt_notes, rt_recommended,
       title, complaint_description, location_description, report_date, report_time, photo,
       status, admin_notes, created_at, updated_at`

// TransitionFunc decides the patch and ledger entry for the locked current row.
type TransitionFunc func(current *models.Report) (models.ReportPatch, *models.ReportHistory, error)

// ReportRepository persists reports.
type ReportRepository struct {
	db          *sqlx.DB
	history     *ReportHistoryRepository
	lockTimeout time.Duration
}

// NewReportRepository constructs the repository. lockTimeout <= 0 waits indefinitely for row locks.
func NewReportRepository(db *sqlx.DB, history *ReportHistoryRepository, lockTimeout time.Duration) *ReportRepository {
	if history == nil {
		history = NewReportHistoryRepository(db)
	}
	return &ReportRepository{db: db, history: history, lockTimeout: lockTimeout}
}

// Create inserts the report together with its creation ledger entry.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report, entry *models.ReportHistory) (err error) {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	report.Status = models.ReportStatusPending
	report.RTRecommended = false
	report.CreatedAt = now
	report.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create report: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO reports
	(id, user_id, assigned_to, approved_by_rt, rt_approved_at, rt_notes, rt_recommended, title, complaint_description,
	 location_description, report_date, report_time, photo, status, admin_notes, created_at, updated_at)
	VALUES (:id, :user_id, :assigned_to, :approved_by_rt, :rt_approved_at, :rt_notes, :rt_recommended, :title, :complaint_description,
	 :location_description, :report_date, :report_time, :photo, :status, :admin_notes, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, report); err != nil {
		if database.IsForeignKeyViolation(err) {
			err = fmt.Errorf("create report: %w", ErrForeignReference)
			return err
		}
		return fmt.Errorf("create report: %w", err)
	}

	if entry != nil {
		entry.ReportID = report.ID
		entry.Status = report.Status
		if entry.ChangedAt.IsZero() {
			entry.ChangedAt = now
		}
		if err = r.history.Append(ctx, tx, entry); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create report: %w", err)
	}
	return nil
}

// GetByID fetches a report. Missing rows surface as sql.ErrNoRows.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	query := fmt.Sprintf("SELECT %s FROM reports WHERE id = $1", reportColumns)
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &report, nil
}

// Update applies a field-level patch and returns the stored row.
func (r *ReportRepository) Update(ctx context.Context, id string, patch models.ReportPatch) (*models.Report, error) {
	return r.update(ctx, r.db, id, patch)
}

func (r *ReportRepository) update(ctx context.Context, q sqlx.QueryerContext, id string, patch models.ReportPatch) (*models.Report, error) {
	sets := make([]string, 0, 8)
	args := make([]interface{}, 0, 9)
	set := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.RTRecommended != nil {
		set("rt_recommended", *patch.RTRecommended)
	}
	if patch.ApprovedByRT != nil {
		set("approved_by_rt", *patch.ApprovedByRT)
	}
	if patch.RTApprovedAt != nil {
		set("rt_approved_at", *patch.RTApprovedAt)
	}
	if patch.RTNotes != nil {
		set("rt_notes", *patch.RTNotes)
	}
	if patch.AssignedTo != nil {
		set("assigned_to", *patch.AssignedTo)
	}
	if patch.AdminNotes != nil {
		set("admin_notes", *patch.AdminNotes)
	}
	set("updated_at", time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE reports SET %s WHERE id = $%d RETURNING %s", strings.Join(sets, ", "), len(args), reportColumns)
	var report models.Report
	if err := sqlx.GetContext(ctx, q, &report, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		if database.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("update report: %w", ErrForeignReference)
		}
		return nil, fmt.Errorf("update report: %w", err)
	}
	return &report, nil
}

// Transition locks the report row, lets decide inspect it, then writes the
// patch and the ledger entry in the same transaction.
func (r *ReportRepository) Transition(ctx context.Context, id string, decide TransitionFunc) (report *models.Report, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin report transition: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if r.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("set lock timeout: %w", err)
		}
	}

	var current models.Report
	lockQuery := fmt.Sprintf("SELECT %s FROM reports WHERE id = $1 FOR UPDATE", reportColumns)
	if err = tx.GetContext(ctx, &current, lockQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		err = conflictOr(err, "lock report")
		return nil, err
	}

	patch, entry, err := decide(&current)
	if err != nil {
		return nil, err
	}

	report, err = r.update(ctx, tx, id, patch)
	if err != nil {
		err = conflictOr(err, "apply transition")
		return nil, err
	}

	if entry != nil {
		entry.ReportID = id
		if entry.Status == "" {
			entry.Status = report.Status
		}
		if err = r.history.Append(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		err = conflictOr(err, "commit transition")
		return nil, err
	}
	return report, nil
}

// Delete removes the report and its ledger.
func (r *ReportRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete report: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM report_history WHERE report_id = $1`, id); err != nil {
		return fmt.Errorf("delete report history: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete report rows affected: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete report: %w", err)
	}
	return nil
}

// List returns a page of reports newest first plus the total number of matches.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	where, args := buildReportWhere(filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM reports" + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	page, size := NormalizePage(filter.Page, filter.PerPage)
	offset := (page - 1) * size
	query := fmt.Sprintf("SELECT %s FROM reports%s ORDER BY created_at DESC LIMIT %d OFFSET %d", reportColumns, where, size, offset)

	reports := []models.Report{}
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	return reports, total, nil
}

// ListByMonth returns every report filed in the month ordered by report date.
func (r *ReportRepository) ListByMonth(ctx context.Context, month, year int) ([]models.Report, error) {
	where, args := buildReportWhere(models.ReportFilter{Month: month, Year: year})
	query := fmt.Sprintf("SELECT %s FROM reports%s ORDER BY report_date ASC, report_time ASC", reportColumns, where)
	reports := []models.Report{}
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, fmt.Errorf("list reports by month: %w", err)
	}
	return reports, nil
}

// Summary counts reports per status; today and this month go by filing time.
// userID scopes the counters to one submitter.
func (r *ReportRepository) Summary(ctx context.Context, userID string, now time.Time) (*models.ReportSummary, error) {
	today := now.Format("2006-01-02")
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	nextMonth := monthStart.AddDate(0, 1, 0)

	query := `SELECT
	COUNT(*) AS total,
	COUNT(*) FILTER (WHERE status = 'pending') AS pending,
	COUNT(*) FILTER (WHERE status = 'pending' AND rt_recommended) AS pending_recommended,
	COUNT(*) FILTER (WHERE status = 'on_hold') AS on_hold,
	COUNT(*) FILTER (WHERE status = 'in_progress') AS in_progress,
	COUNT(*) FILTER (WHERE status = 'done') AS done,
	COUNT(*) FILTER (WHERE created_at::date = $1) AS today,
	COUNT(*) FILTER (WHERE created_at >= $2 AND created_at < $3) AS this_month
	FROM reports`
	args := []interface{}{today, monthStart.Format("2006-01-02"), nextMonth.Format("2006-01-02")}
	if userID != "" {
		args = append(args, userID)
		query += " WHERE user_id = $4"
	}

	var summary models.ReportSummary
	if err := r.db.GetContext(ctx, &summary, query, args...); err != nil {
		return nil, fmt.Errorf("summarize reports: %w", err)
	}
	return &summary, nil
}

// NormalizePage clamps pagination input to sane bounds.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultReportPageSize
	}
	if size > maxReportPageSize {
		size = maxReportPageSize
	}
	return page, size
}

func buildReportWhere(filter models.ReportFilter) (string, []interface{}) {
	conditions := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)
	add := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if len(filter.Statuses) == 1 {
		add("status = $%d", filter.Statuses[0])
	} else if len(filter.Statuses) > 1 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", pq.Array(statuses))
	}
	if filter.RTRecommended != nil {
		add("rt_recommended = $%d", *filter.RTRecommended)
	}
	if filter.ReportDate != nil {
		add("report_date = $%d", filter.ReportDate.Format("2006-01-02"))
	}
	if filter.Month > 0 {
		add("EXTRACT(MONTH FROM report_date) = $%d", filter.Month)
	}
	if filter.Year > 0 {
		add("EXTRACT(YEAR FROM report_date) = $%d", filter.Year)
	}
	if filter.AssignedTo != "" {
		add("assigned_to = $%d", filter.AssignedTo)
	}
	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func conflictOr(err error, op string) error {
	if database.IsLockConflict(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrTransitionConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
