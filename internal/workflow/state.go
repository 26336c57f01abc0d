package workflow

import (
	"fmt"

	"github.com/noah-isme/laporpak-api/internal/models"
)

// Mode selects which approval table a deployment runs.
type Mode string

const (
	// ModeThreeParty routes reports warga -> rt recommend/reject -> admin confirm/complete.
	ModeThreeParty Mode = "three_party"
	// ModeTwoParty lets rt or admin confirm directly without the recommend gate.
	ModeTwoParty Mode = "two_party"
)

// ParseMode validates a configured mode. Empty defaults to three-party.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case "", ModeThreeParty:
		return ModeThreeParty, nil
	case ModeTwoParty:
		return ModeTwoParty, nil
	}
	return "", fmt.Errorf("unknown workflow mode %q", raw)
}

// State is the composite (status, rt_recommended) pair the transition table matches on.
type State struct {
	Status        models.ReportStatus `json:"status"`
	RTRecommended bool                `json:"rt_recommended"`
}

// StateOf extracts the workflow state of a report.
func StateOf(r *models.Report) State {
	if r == nil {
		return State{}
	}
	return State{Status: r.Status, RTRecommended: r.RTRecommended}
}

func (s State) String() string {
	return fmt.Sprintf("(%s, %t)", s.Status, s.RTRecommended)
}

// Action names an operation guarded by the policy.
type Action string

const (
	ActionSubmit       Action = "submit"
	ActionRecommend    Action = "recommend"
	ActionReject       Action = "reject"
	ActionConfirm      Action = "confirm"
	ActionComplete     Action = "complete"
	ActionUpdateStatus Action = "update_status"
	ActionAssign       Action = "assign"
)

// transitionActions is the display order used for available actions.
var transitionActions = []Action{
	ActionRecommend,
	ActionReject,
	ActionConfirm,
	ActionAssign,
	ActionUpdateStatus,
	ActionComplete,
}
