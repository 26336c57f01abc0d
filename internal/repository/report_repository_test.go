package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/laporpak-api/internal/models"
)

func newReportRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

var reportRowColumns = []string{
	"id", "user_id", "assigned_to", "approved_by_rt", "rt_approved_at", "rt_notes", "rt_recommended",
	"title", "complaint_description", "location_description", "report_date", "report_time", "photo",
	"status", "admin_notes", "created_at", "updated_at",
}

func reportRow(id string, status models.ReportStatus, recommended bool) []driver.Value {
	now := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)
	var approvedBy, approvedAt driver.Value
	if recommended {
		approvedBy, approvedAt = "rt-1", now
	}
	return []driver.Value{
		id, "warga-1", nil, approvedBy, approvedAt, nil, recommended,
		"Lampu jalan mati", "Sudah seminggu", "Gang 3", now, "19:30", nil,
		string(status), nil, now, now,
	}
}

func rowsOf(values ...[]driver.Value) *sqlmock.Rows {
	rows := sqlmock.NewRows(reportRowColumns)
	for _, v := range values {
		rows.AddRow(v...)
	}
	return rows
}

func TestReportRepositoryCreateWritesLedger(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db, nil, 0)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reports")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_history")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	userID := "warga-1"
	report := &models.Report{UserID: userID, Title: "Lampu jalan mati", Status: models.ReportStatusDone, RTRecommended: true}
	entry := &models.ReportHistory{Notes: "Report created", ChangedBy: &userID}
	require.NoError(t, repo.Create(context.Background(), report, entry))

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, models.ReportStatusPending, report.Status)
	assert.False(t, report.RTRecommended)
	assert.Equal(t, report.ID, entry.ReportID)
	assert.Equal(t, models.ReportStatusPending, entry.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryCreateUnknownSubmitter(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db, nil, 0)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reports")).WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Report{UserID: "ghost"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForeignReference)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db, nil, 0)

	mock.ExpectQuery(regexp.QuoteMeta("FROM reports WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReportRepositoryUpdatePatchesOnlySetFields(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db, nil, 0)

	status := models.ReportStatusOnHold
	notes := "rejected: no budget"
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE reports SET status = $1, rt_notes = $2, updated_at = $3 WHERE id = $4 RETURNING")).
		WithArgs("on_hold", notes, sqlmock.AnyArg(), "r-1").
		WillReturnRows(rowsOf(reportRow("r-1", models.ReportStatusOnHold, false)))

	report, err := repo.Update(context.Background(), "r-1", models.ReportPatch{Status: &status, RTNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusOnHold, report.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryTransitionCommitsPatchAndEntry(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db, nil, 2*time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL lock_timeout = '2000ms'")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM reports WHERE id = $1 FOR UPDATE")).
		WithArgs("r-1").
		WillReturnRows(rowsOf(reportRow("r-1", models.ReportStatusPending, true)))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE reports SET status = $1, updated_at = $2 WHERE id = $3")).
		WithArgs("in_progress", sqlmock.AnyArg(), "r-1").
		WillReturnRows(rowsOf(reportRow("r-1", models.ReportStatusInProgress, true)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_history")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	var seen models.ReportStatus
	report, err := repo.Transition(context.Background(), "r-1", func(current *models.Report) (models.ReportPatch, *models.ReportHistory, error) {
		seen = current.Status
		next := models.ReportStatusInProgress
		return models.ReportPatch{Status: &next}, &models.ReportHistory{Notes: "Confirmed by admin"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, seen)
	assert.Equal(t, models.ReportStatusInProgress, report.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryTransitionRejectedDecisionRollsBack(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db, nil, 0)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("r-1").
		WillReturnRows(rowsOf(reportRow("r-1", models.ReportStatusDone, true)))
	mock.ExpectRollback()

	guard := errors.New("already done")
	_, err := repo.Transition(context.Background(), "r-1", func(*models.Report) (models.ReportPatch, *models.ReportHistory, error) {
		return models.ReportPatch{}, nil, guard
	})
	assert.ErrorIs(t, err, guard)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryTransitionLockTimeoutIsConflict(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db, nil, 0)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("r-1").
		WillReturnError(&pq.Error{Code: "55P03", Message: "canceling statement due to lock timeout"})
	mock.ExpectRollback()

	_, err := repo.Transition(context.Background(), "r-1", func(*models.Report) (models.ReportPatch, *models.ReportHistory, error) {
		t.Fatal("decide must not run without the lock")
		return models.ReportPatch{}, nil, nil
	})
	assert.ErrorIs(t, err, ErrTransitionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryTransitionLedgerFailureRollsBack(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db, nil, 0)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("r-1").
		WillReturnRows(rowsOf(reportRow("r-1", models.ReportStatusPending, false)))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE reports SET")).
		WillReturnRows(rowsOf(reportRow("r-1", models.ReportStatusDone, false)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_history")).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.Transition(context.Background(), "r-1", func(*models.Report) (models.ReportPatch, *models.ReportHistory, error) {
		done := models.ReportStatusDone
		return models.ReportPatch{Status: &done}, &models.ReportHistory{Notes: "fixed"}, nil
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db, nil, 0)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM report_history WHERE report_id = $1")).WithArgs("r-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reports WHERE id = $1")).WithArgs("r-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, repo.Delete(context.Background(), "r-1"))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM report_history")).WithArgs("r-2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reports")).WithArgs("r-2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	assert.ErrorIs(t, repo.Delete(context.Background(), "r-2"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListBuildsFilters(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db, nil, 0)

	recommended := true
	filter := models.ReportFilter{
		Statuses:      []models.ReportStatus{models.ReportStatusPending},
		RTRecommended: &recommended,
		UserID:        "warga-1",
		Page:          2,
		PerPage:       500,
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reports WHERE status = $1 AND rt_recommended = $2 AND user_id = $3")).
		WithArgs("pending", true, "warga-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(101))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT 100 OFFSET 100")).
		WithArgs("pending", true, "warga-1").
		WillReturnRows(rowsOf(reportRow("r-1", models.ReportStatusPending, true)))

	reports, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 101, total)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].RTRecommended)
	require.NotNil(t, reports[0].ApprovedByRT)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListMultipleStatuses(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db, nil, 0)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reports WHERE status = ANY($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT 10 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows(reportRowColumns))

	reports, total, err := repo.List(context.Background(), models.ReportFilter{
		Statuses: []models.ReportStatus{models.ReportStatusPending, models.ReportStatusOnHold},
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, reports)
}

func TestReportRepositorySummary(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db, nil, 0)

	now := time.Date(2025, 11, 15, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM reports WHERE user_id = $4")).
		WithArgs("2025-11-15", "2025-11-01", "2025-12-01", "warga-1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "pending", "pending_recommended", "on_hold", "in_progress", "done", "today", "this_month"}).
			AddRow(7, 3, 1, 1, 2, 1, 1, 4))

	summary, err := repo.Summary(context.Background(), "warga-1", now)
	require.NoError(t, err)
	assert.Equal(t, 7, summary.Total)
	assert.Equal(t, 1, summary.PendingRecommended)
	assert.Equal(t, 4, summary.ThisMonth)
}

func TestNormalizePage(t *testing.T) {
	page, size := NormalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, size)

	_, size = NormalizePage(3, 1000)
	assert.Equal(t, 100, size)
}
