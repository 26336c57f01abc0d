package models

import "time"

// ReportHistory is one immutable ledger entry describing a status change.
type ReportHistory struct {
	ID        string       `db:"id" json:"id"`
	ReportID  string       `db:"report_id" json:"report_id"`
	Status    ReportStatus `db:"status" json:"status"`
	Notes     string       `db:"notes" json:"notes"`
	ChangedBy *string      `db:"changed_by" json:"changed_by,omitempty"`
	ChangedAt time.Time    `db:"changed_at" json:"changed_at"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`

	// Resolved on read; nil when the actor no longer exists.
	ChangedByName *string   `db:"changed_by_name" json:"changed_by_name,omitempty"`
	ChangedByRole *UserRole `db:"changed_by_role" json:"changed_by_role,omitempty"`
}
