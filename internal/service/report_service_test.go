package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/laporpak-api/internal/dto"
	"github.com/noah-isme/laporpak-api/internal/models"
	"github.com/noah-isme/laporpak-api/internal/workflow"
	appErrors "github.com/noah-isme/laporpak-api/pkg/errors"
	"github.com/noah-isme/laporpak-api/pkg/storage"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type failingPhotoStore struct {
	storage.PhotoStore
	deleteErr error
	deletes   []string
}

func (f *failingPhotoStore) Delete(ctx context.Context, name string) error {
	f.deletes = append(f.deletes, name)
	return f.deleteErr
}

func newReportFixture(t *testing.T, photos storage.PhotoStore, logger *zap.Logger) (*ReportService, *memoryReportStore) {
	t.Helper()
	store := newMemoryReportStore()
	if photos == nil {
		local, err := storage.NewLocalStorage(t.TempDir())
		require.NoError(t, err)
		photos = local
	}
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewReportService(store, store, photos, signer,
		workflow.NewPolicy(workflow.ModeThreeParty), workflow.NewMachine(workflow.ModeThreeParty),
		nil, nil, ReportServiceConfig{MaxPhotoSize: 1024}, logger)
	return svc, store
}

func validDraft() dto.CreateReportRequest {
	return dto.CreateReportRequest{
		Title:                "Jalan berlubang",
		ComplaintDescription: "Lubang besar di depan masjid",
		LocationDescription:  "RT 03 / RW 05",
		ReportDate:           "2025-11-03",
		ReportTime:           "07:45",
	}
}

func TestReportServiceSubmitCreatesLedgerEntry(t *testing.T) {
	svc, store := newReportFixture(t, nil, nil)

	report, err := svc.Submit(context.Background(), wargaActor, validDraft(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, report.Status)
	assert.False(t, report.RTRecommended)
	assert.Equal(t, wargaActor.ID, report.UserID)
	assert.Equal(t, 2025, report.ReportDate.Year())

	entries := store.entries(report.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, "Report created", entries[0].Notes)
	assert.Equal(t, wargaActor.ID, *entries[0].ChangedBy)
}

func TestReportServiceSubmitValidation(t *testing.T) {
	svc, store := newReportFixture(t, nil, nil)

	draft := validDraft()
	draft.Title = "   "
	draft.ReportTime = "7pm"
	_, err := svc.Submit(context.Background(), wargaActor, draft, nil)
	requireCode(t, err, appErrors.ErrValidation)

	fields, ok := appErrors.FromError(err).Details["fields"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "required", fields["title"])
	assert.Equal(t, "datetime=15:04", fields["report_time"])
	assert.Empty(t, store.reports)
}

func TestReportServiceSubmitWithPhoto(t *testing.T) {
	svc, _ := newReportFixture(t, nil, nil)
	body := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...)

	report, err := svc.Submit(context.Background(), wargaActor, validDraft(), &dto.PhotoUpload{
		Filename: "lubang.png", Size: int64(len(body)), Body: bytes.NewReader(body),
	})
	require.NoError(t, err)
	require.NotNil(t, report.Photo)
	assert.True(t, strings.HasPrefix(*report.Photo, "reports/"))
	assert.True(t, strings.HasSuffix(*report.Photo, ".png"))

	detail, err := svc.Detail(context.Background(), wargaActor, report.ID)
	require.NoError(t, err)
	require.NotEmpty(t, detail.PhotoURL)

	rc, contentType, err := svc.OpenPhoto(context.Background(), strings.TrimPrefix(detail.PhotoURL, "/photos/"))
	require.NoError(t, err)
	defer rc.Close()
	stored, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, body, stored)
	assert.Equal(t, "image/png", contentType)
}

func TestReportServiceSubmitRejectsPhoto(t *testing.T) {
	svc, _ := newReportFixture(t, nil, nil)

	_, err := svc.Submit(context.Background(), wargaActor, validDraft(), &dto.PhotoUpload{
		Size: 10, Body: strings.NewReader("plain text"),
	})
	requireCode(t, err, appErrors.ErrValidation)

	_, err = svc.Submit(context.Background(), wargaActor, validDraft(), &dto.PhotoUpload{
		Size: 4096, Body: bytes.NewReader(pngHeader),
	})
	requireCode(t, err, appErrors.ErrValidation)
}

func TestReportServiceDetailAvailableActions(t *testing.T) {
	svc, store := newReportFixture(t, nil, nil)
	report := store.seed(models.Report{UserID: wargaActor.ID})

	detail, err := svc.Detail(context.Background(), rtActor, report.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"recommend", "reject"}, detail.AvailableActions)
	assert.Len(t, detail.History, 1)
	assert.Empty(t, detail.PhotoURL)

	detail, err = svc.Detail(context.Background(), wargaActor, report.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.AvailableActions)

	_, err = svc.Detail(context.Background(), rtActor, "ghost")
	requireCode(t, err, appErrors.ErrNotFound)
}

func TestReportServiceDeleteOwnership(t *testing.T) {
	svc, store := newReportFixture(t, nil, nil)
	report := store.seed(models.Report{UserID: wargaActor.ID})

	err := svc.Delete(context.Background(), rtActor, report.ID)
	requireCode(t, err, appErrors.ErrForbidden)
	assert.NotNil(t, store.get(report.ID))

	require.NoError(t, svc.Delete(context.Background(), wargaActor, report.ID))
	assert.Nil(t, store.get(report.ID))
	assert.Empty(t, store.entries(report.ID))

	err = svc.Delete(context.Background(), adminActor, report.ID)
	requireCode(t, err, appErrors.ErrNotFound)
}

func TestReportServiceDeletePhotoFailureIsWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	photos := &failingPhotoStore{deleteErr: errors.New("bucket unavailable")}
	svc, store := newReportFixture(t, photos, zap.New(core))

	photo := "reports/a.jpg"
	report := store.seed(models.Report{UserID: wargaActor.ID, Photo: &photo})

	require.NoError(t, svc.Delete(context.Background(), adminActor, report.ID))
	assert.Nil(t, store.get(report.ID))
	assert.Equal(t, []string{"reports/a.jpg"}, photos.deletes)

	warnings := logs.FilterMessage("failed to delete report photo").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)
}

func TestReportServiceOpenPhotoRejectsForeignPath(t *testing.T) {
	svc, store := newReportFixture(t, nil, nil)
	photo := "reports/real.png"
	report := store.seed(models.Report{UserID: wargaActor.ID, Photo: &photo})

	token, _, err := storage.NewSignedURLSigner("secret", time.Hour).Generate(report.ID, "reports/other.png")
	require.NoError(t, err)
	_, _, err = svc.OpenPhoto(context.Background(), token)
	requireCode(t, err, appErrors.ErrNotFound)

	_, _, err = svc.OpenPhoto(context.Background(), "garbage")
	requireCode(t, err, appErrors.ErrNotFound)
}

func TestReportServiceHistory(t *testing.T) {
	svc, store := newReportFixture(t, nil, nil)
	report := store.seed(models.Report{UserID: wargaActor.ID})

	entries, err := svc.History(context.Background(), report.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	_, err = svc.History(context.Background(), "ghost")
	requireCode(t, err, appErrors.ErrNotFound)
}

type janitorStub struct {
	scheduled []string
}

func (j *janitorStub) Schedule(reportID, photo string) error {
	j.scheduled = append(j.scheduled, reportID+":"+photo)
	return nil
}

func TestReportServiceDeleteSchedulesPhotoRetry(t *testing.T) {
	store := newMemoryReportStore()
	photos := &failingPhotoStore{deleteErr: errors.New("bucket unavailable")}
	janitor := &janitorStub{}
	svc := NewReportService(store, store, photos, nil,
		workflow.NewPolicy(workflow.ModeThreeParty), workflow.NewMachine(workflow.ModeThreeParty),
		nil, nil, ReportServiceConfig{}, nil, WithPhotoJanitor(janitor))

	photo := "reports/b.png"
	report := store.seed(models.Report{UserID: wargaActor.ID, Photo: &photo})

	require.NoError(t, svc.Delete(context.Background(), wargaActor, report.ID))
	assert.Equal(t, []string{report.ID + ":reports/b.png"}, janitor.scheduled)
}
