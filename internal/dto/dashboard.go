package dto

// StatusCounts breaks report totals down by status.
type StatusCounts struct {
	All        int `json:"all"`
	Pending    int `json:"pending"`
	OnHold     int `json:"on_hold"`
	InProgress int `json:"in_progress"`
	Done       int `json:"done"`
}

// RTDashboardStats is the RT dashboard payload.
type RTDashboardStats struct {
	Total            int          `json:"total"`
	ByStatus         StatusCounts `json:"by_status"`
	Today            int          `json:"today"`
	ThisMonth        int          `json:"this_month"`
	NeedConfirmation int          `json:"need_confirmation"`
}

// AdminDashboardStats is the admin dashboard payload; pending only counts RT recommended reports.
type AdminDashboardStats struct {
	Total      int          `json:"total"`
	ByStatus   StatusCounts `json:"by_status"`
	Today      int          `json:"today"`
	ThisMonth  int          `json:"this_month"`
	NeedReview int          `json:"need_review"`
}

// ReportStatistics is the per-citizen statistics payload.
type ReportStatistics struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	OnHold     int `json:"on_hold"`
	InProgress int `json:"in_progress"`
	Done       int `json:"done"`
}
