package models

import "time"

// ReportStatus is the primary lifecycle state of a complaint.
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusOnHold     ReportStatus = "on_hold"
	ReportStatusInProgress ReportStatus = "in_progress"
	ReportStatusDone       ReportStatus = "done"
)

var reportStatuses = []ReportStatus{
	ReportStatusPending,
	ReportStatusOnHold,
	ReportStatusInProgress,
	ReportStatusDone,
}

// ReportStatuses lists every status in lifecycle order.
func ReportStatuses() []ReportStatus {
	out := make([]ReportStatus, len(reportStatuses))
	copy(out, reportStatuses)
	return out
}

// Valid reports whether s is one of the known statuses.
func (s ReportStatus) Valid() bool {
	for _, known := range reportStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseReportStatus converts user input into a status.
func ParseReportStatus(raw string) (ReportStatus, bool) {
	s := ReportStatus(raw)
	return s, s.Valid()
}

// Report is one citizen complaint together with its workflow fields.
type Report struct {
	ID                   string       `db:"id" json:"id"`
	UserID               string       `db:"user_id" json:"user_id"`
	AssignedTo           *string      `db:"assigned_to" json:"assigned_to,omitempty"`
	ApprovedByRT         *string      `db:"approved_by_rt" json:"approved_by_rt,omitempty"`
	RTApprovedAt         *time.Time   `db:"rt_approved_at" json:"rt_approved_at,omitempty"`
	RTNotes              *string      `db:"rt_notes" json:"rt_notes,omitempty"`
	RTRecommended        bool         `db:"rt_recommended" json:"rt_recommended"`
	Title                string       `db:"title" json:"title"`
	ComplaintDescription string       `db:"complaint_description" json:"complaint_description"`
	LocationDescription  string       `db:"location_description" json:"location_description"`
	ReportDate           time.Time    `db:"report_date" json:"report_date"`
	ReportTime           string       `db:"report_time" json:"report_time"`
	Photo                *string      `db:"photo" json:"photo,omitempty"`
	Status               ReportStatus `db:"status" json:"status"`
	AdminNotes           *string      `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt            time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time    `db:"updated_at" json:"updated_at"`
}

// ReportPatch is a field-level update; nil fields are left untouched.
type ReportPatch struct {
	Status        *ReportStatus
	RTRecommended *bool
	ApprovedByRT  *string
	RTApprovedAt  *time.Time
	RTNotes       *string
	AssignedTo    *string
	AdminNotes    *string
}

// IsEmpty reports whether the patch changes nothing.
func (p ReportPatch) IsEmpty() bool {
	return p.Status == nil && p.RTRecommended == nil && p.ApprovedByRT == nil &&
		p.RTApprovedAt == nil && p.RTNotes == nil && p.AssignedTo == nil && p.AdminNotes == nil
}

// ApplyTo copies the patched fields onto r.
func (p ReportPatch) ApplyTo(r *Report) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.RTRecommended != nil {
		r.RTRecommended = *p.RTRecommended
	}
	if p.ApprovedByRT != nil {
		v := *p.ApprovedByRT
		r.ApprovedByRT = &v
	}
	if p.RTApprovedAt != nil {
		v := *p.RTApprovedAt
		r.RTApprovedAt = &v
	}
	if p.RTNotes != nil {
		v := *p.RTNotes
		r.RTNotes = &v
	}
	if p.AssignedTo != nil {
		v := *p.AssignedTo
		r.AssignedTo = &v
	}
	if p.AdminNotes != nil {
		v := *p.AdminNotes
		r.AdminNotes = &v
	}
}

// ReportFilter constrains listing queries. Zero values mean "no predicate".
type ReportFilter struct {
	Statuses      []ReportStatus
	RTRecommended *bool
	ReportDate    *time.Time
	Month         int
	Year          int
	AssignedTo    string
	UserID        string
	Page          int
	PerPage       int
}

// ReportSummary aggregates counters for dashboards.
type ReportSummary struct {
	Total              int `db:"total" json:"total"`
	Pending            int `db:"pending" json:"pending"`
	PendingRecommended int `db:"pending_recommended" json:"pending_recommended"`
	OnHold             int `db:"on_hold" json:"on_hold"`
	InProgress         int `db:"in_progress" json:"in_progress"`
	Done               int `db:"done" json:"done"`
	Today              int `db:"today" json:"today"`
	ThisMonth          int `db:"this_month" json:"this_month"`
}
