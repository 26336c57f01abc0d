package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/laporpak-api/internal/models"
	"github.com/noah-isme/laporpak-api/internal/repository"
)

// memoryReportStore serializes transitions per store the way the row lock does per report.
type memoryReportStore struct {
	mu      sync.Mutex
	seq     int
	reports map[string]*models.Report
	history map[string][]models.ReportHistory

	transitionErr error
	deleted       []string
	filter        models.ReportFilter
	summaryUser   string
}

func newMemoryReportStore() *memoryReportStore {
	return &memoryReportStore{
		reports: make(map[string]*models.Report),
		history: make(map[string][]models.ReportHistory),
	}
}

func (m *memoryReportStore) Create(ctx context.Context, report *models.Report, entry *models.ReportHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if report.ID == "" {
		report.ID = fmt.Sprintf("r-%d", m.seq)
	}
	report.Status = models.ReportStatusPending
	report.RTRecommended = false
	report.CreatedAt = time.Now().UTC()
	stored := *report
	m.reports[report.ID] = &stored
	if entry != nil {
		entry.ReportID = report.ID
		entry.Status = report.Status
		m.history[report.ID] = append(m.history[report.ID], *entry)
	}
	return nil
}

func (m *memoryReportStore) seed(report models.Report) *models.Report {
	_ = m.Create(context.Background(), &report, &models.ReportHistory{Notes: "Report created", ChangedBy: &report.UserID})
	return m.get(report.ID)
}

func (m *memoryReportStore) get(id string) *models.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil
	}
	out := *r
	return &out
}

func (m *memoryReportStore) entries(id string) []models.ReportHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ReportHistory(nil), m.history[id]...)
}

func (m *memoryReportStore) GetByID(ctx context.Context, id string) (*models.Report, error) {
	if r := m.get(id); r != nil {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryReportStore) Transition(ctx context.Context, id string, decide repository.TransitionFunc) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transitionErr != nil {
		return nil, m.transitionErr
	}
	current, ok := m.reports[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	snapshot := *current
	patch, entry, err := decide(&snapshot)
	if err != nil {
		return nil, err
	}
	patch.ApplyTo(current)
	if entry != nil {
		entry.ReportID = id
		m.history[id] = append(m.history[id], *entry)
	}
	out := *current
	return &out, nil
}

func (m *memoryReportStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.reports, id)
	delete(m.history, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memoryReportStore) ListByReport(ctx context.Context, reportID string) ([]models.ReportHistory, error) {
	return m.entries(reportID), nil
}

func (m *memoryReportStore) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter = filter
	out := make([]models.Report, 0, len(m.reports))
	for _, r := range m.reports {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memoryReportStore) ListByMonth(ctx context.Context, month, year int) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Report{}
	for _, r := range m.reports {
		if int(r.ReportDate.Month()) == month && r.ReportDate.Year() == year {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReportDate.Before(out[j].ReportDate) })
	return out, nil
}

func (m *memoryReportStore) Summary(ctx context.Context, userID string, now time.Time) (*models.ReportSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaryUser = userID
	var s models.ReportSummary
	for _, r := range m.reports {
		if userID != "" && r.UserID != userID {
			continue
		}
		s.Total++
		switch r.Status {
		case models.ReportStatusPending:
			s.Pending++
			if r.RTRecommended {
				s.PendingRecommended++
			}
		case models.ReportStatusOnHold:
			s.OnHold++
		case models.ReportStatusInProgress:
			s.InProgress++
		case models.ReportStatusDone:
			s.Done++
		}
	}
	return &s, nil
}

type userStub struct {
	users map[string]*models.User
}

func (u *userStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := u.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (u *userStub) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	out := []models.User{}
	for _, user := range u.users {
		if user.Role == role {
			out = append(out, *user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
