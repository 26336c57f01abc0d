package dto

import (
	"io"
	"time"

	"github.com/noah-isme/laporpak-api/internal/models"
)

// CreateReportRequest is the draft a citizen submits.
type CreateReportRequest struct {
	Title                string `json:"title" form:"title" validate:"required,max=255"`
	ComplaintDescription string `json:"complaint_description" form:"complaint_description" validate:"required"`
	LocationDescription  string `json:"location_description" form:"location_description" validate:"required"`
	ReportDate           string `json:"report_date" form:"report_date" validate:"required,datetime=2006-01-02"`
	ReportTime           string `json:"report_time" form:"report_time" validate:"required,datetime=15:04"`
}

// PhotoUpload is an optional image attached to a new report.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// NotesRequest carries optional free text for recommend, confirm and complete.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// RejectRequest requires the RT to explain the rejection.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// UpdateStatusRequest overrides the report status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// AssignRequest hands a report to a field worker.
type AssignRequest struct {
	AssignedTo string `json:"assigned_to"`
	Notes      string `json:"notes"`
}

// ReportListQuery mirrors the query string of report listings.
type ReportListQuery struct {
	Status    string `form:"status"`
	Tab       string `form:"tab"`
	MyReports bool   `form:"my_reports"`
	Date      string `form:"date"`
	Month     int    `form:"month"`
	Year      int    `form:"year"`
	Page      int    `form:"page"`
	PerPage   int    `form:"per_page"`
}

// ByDateQuery selects one calendar month.
type ByDateQuery struct {
	Month int `form:"month" validate:"required,min=1,max=12"`
	Year  int `form:"year" validate:"required,min=2020"`
}

// ExportQuery selects the month and format of a recap export.
type ExportQuery struct {
	Month  int    `form:"month" validate:"required,min=1,max=12"`
	Year   int    `form:"year" validate:"required,min=2020"`
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// ReportDetail bundles a report with its ledger and what the caller may do next.
type ReportDetail struct {
	Report           *models.Report         `json:"report"`
	History          []models.ReportHistory `json:"history"`
	AvailableActions []string               `json:"available_actions"`
	PhotoURL         string                 `json:"photo_url,omitempty"`
	PhotoURLExpires  *time.Time             `json:"photo_url_expires_at,omitempty"`
}

// ReportsByDate groups one day of reports.
type ReportsByDate struct {
	Date    string          `json:"date"`
	Count   int             `json:"count"`
	Reports []models.Report `json:"reports"`
}

// ExportResult is a rendered recap file.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}
