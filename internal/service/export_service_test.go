package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/laporpak-api/internal/dto"
	"github.com/noah-isme/laporpak-api/internal/models"
	appErrors "github.com/noah-isme/laporpak-api/pkg/errors"
)

func TestExportServiceMonthlyCSV(t *testing.T) {
	store := newMemoryReportStore()
	notes := "rejected: duplicate"
	held := store.seed(models.Report{
		UserID: wargaActor.ID, Title: "Sampah menumpuk", LocationDescription: "Gang 2",
		ReportDate: time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC), ReportTime: "08:15",
	})
	store.reports[held.ID].Status = models.ReportStatusOnHold
	store.reports[held.ID].RTNotes = &notes
	store.seed(models.Report{UserID: wargaActor.ID, ReportDate: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)})

	svc := NewExportService(store, nil)
	result, err := svc.MonthlyRecap(context.Background(), dto.ExportQuery{Month: 11, Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, "laporan-2025-11.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)

	rows, err := csv.NewReader(bytes.NewReader(result.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, recapHeaders, rows[0])
	assert.Equal(t, []string{"2025-11-03", "08:15", "Sampah menumpuk", "Gang 2", "on_hold", "tidak", "", notes, ""}, rows[1])
}

func TestExportServiceMonthlyPDF(t *testing.T) {
	svc := NewExportService(newMemoryReportStore(), nil)
	result, err := svc.MonthlyRecap(context.Background(), dto.ExportQuery{Month: 2, Year: 2026, Format: "PDF"})
	require.NoError(t, err)
	assert.Equal(t, "laporan-2026-02.pdf", result.Filename)
	assert.True(t, bytes.HasPrefix(result.Body, []byte("%PDF")))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(newMemoryReportStore(), nil)
	_, err := svc.MonthlyRecap(context.Background(), dto.ExportQuery{Month: 2, Year: 2026, Format: "xlsx"})
	requireCode(t, err, appErrors.ErrValidation)
}
