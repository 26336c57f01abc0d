package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/laporpak-api/internal/models"
	appErrors "github.com/noah-isme/laporpak-api/pkg/errors"
)

// Command carries one transition request after the caller has been authenticated.
type Command struct {
	Action     Action
	Actor      models.Actor
	Notes      string
	Reason     string
	Target     models.ReportStatus
	AssigneeID string
	// AssigneeName is only used for the default ledger note.
	AssigneeName string
	At           time.Time
}

// Outcome is the field patch plus the single ledger entry a transition produces.
type Outcome struct {
	From  State
	To    State
	Patch models.ReportPatch
	Entry models.ReportHistory
}

type rule struct {
	from  func(State) bool
	check func(Command) error
	// guard rejects commands that match from but would not change the report.
	guard func(State, Command) error
	apply func(State, Command) (models.ReportPatch, string)
}

// Machine is the pure transition table for one deployment mode.
type Machine struct {
	mode  Mode
	rules map[Action]rule
}

// NewMachine returns the transition table for mode.
func NewMachine(mode Mode) *Machine {
	rules := map[Action]rule{
		ActionRecommend: {
			from:  func(s State) bool { return s.Status == models.ReportStatusPending && !s.RTRecommended },
			apply: recommend,
		},
		ActionReject: {
			from:  func(s State) bool { return s.Status == models.ReportStatusPending && !s.RTRecommended },
			check: requireReason,
			apply: reject,
		},
		ActionConfirm: {
			from:  func(s State) bool { return s.Status == models.ReportStatusPending && s.RTRecommended },
			apply: confirm,
		},
		ActionComplete: {
			from:  func(s State) bool { return s.Status != models.ReportStatusDone },
			apply: complete,
		},
		ActionUpdateStatus: {
			from:  func(State) bool { return true },
			check: requireTarget,
			guard: requireStatusChange,
			apply: updateStatus,
		},
		ActionAssign: {
			from:  func(State) bool { return true },
			check: requireAssignee,
			apply: assign,
		},
	}
	if mode == ModeTwoParty {
		delete(rules, ActionRecommend)
		confirmRule := rules[ActionConfirm]
		confirmRule.from = func(s State) bool { return s.Status == models.ReportStatusPending }
		rules[ActionConfirm] = confirmRule
	}
	return &Machine{mode: mode, rules: rules}
}

// Mode returns the deployment mode of the table.
func (m *Machine) Mode() Mode { return m.mode }

// Apply evaluates cmd against state without side effects.
func (m *Machine) Apply(state State, cmd Command) (*Outcome, error) {
	r, ok := m.rules[cmd.Action]
	if !ok {
		return nil, invalidTransition(state, cmd.Action, fmt.Sprintf("%s is not part of the %s workflow", cmd.Action, m.mode))
	}
	if r.check != nil {
		if err := r.check(cmd); err != nil {
			return nil, err
		}
	}
	if !r.from(state) {
		return nil, invalidTransition(state, cmd.Action, "")
	}
	if r.guard != nil {
		if err := r.guard(state, cmd); err != nil {
			return nil, err
		}
	}

	at := cmd.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	cmd.At = at

	patch, notes := r.apply(state, cmd)
	to := state
	if patch.Status != nil {
		to.Status = *patch.Status
	}
	if patch.RTRecommended != nil {
		to.RTRecommended = *patch.RTRecommended
	}

	entry := models.ReportHistory{
		Status:    to.Status,
		Notes:     notes,
		ChangedAt: at,
	}
	if cmd.Actor.ID != "" {
		actorID := cmd.Actor.ID
		entry.ChangedBy = &actorID
	}
	return &Outcome{From: state, To: to, Patch: patch, Entry: entry}, nil
}

// Transitions lists the actions whose From pattern matches state.
func (m *Machine) Transitions(state State) []Action {
	out := make([]Action, 0, len(transitionActions))
	for _, action := range transitionActions {
		if r, ok := m.rules[action]; ok && r.from(state) {
			out = append(out, action)
		}
	}
	return out
}

func invalidTransition(state State, action Action, message string) error {
	if message == "" {
		message = fmt.Sprintf("cannot %s a report in state %s", action, state)
	}
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrInvalidTransition, message), map[string]interface{}{
		"action":  string(action),
		"current": state,
	})
}

func requireReason(cmd Command) error {
	if strings.TrimSpace(cmd.Reason) == "" {
		return appErrors.Validation("reason is required", map[string]string{"reason": "required"})
	}
	return nil
}

func requireTarget(cmd Command) error {
	if !cmd.Target.Valid() {
		return appErrors.Validation("invalid status", map[string]string{"status": "oneof=pending on_hold in_progress done"})
	}
	return nil
}

func requireStatusChange(state State, cmd Command) error {
	if cmd.Target == state.Status {
		return invalidTransition(state, cmd.Action, fmt.Sprintf("report is already %s", state.Status))
	}
	return nil
}

func requireAssignee(cmd Command) error {
	if strings.TrimSpace(cmd.AssigneeID) == "" {
		return appErrors.Validation("assignee is required", map[string]string{"assigned_to": "required"})
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

func withNotes(base, notes string) string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return base
	}
	return base + ": " + notes
}

func recommend(_ State, cmd Command) (models.ReportPatch, string) {
	patch := models.ReportPatch{
		RTRecommended: ptr(true),
		ApprovedByRT:  ptr(cmd.Actor.ID),
		RTApprovedAt:  ptr(cmd.At),
	}
	notes := strings.TrimSpace(cmd.Notes)
	if notes == "" {
		notes = "RT recommended"
	}
	patch.RTNotes = ptr(notes)
	return patch, withNotes("RT recommended", cmd.Notes)
}

func reject(_ State, cmd Command) (models.ReportPatch, string) {
	reason := strings.TrimSpace(cmd.Reason)
	return models.ReportPatch{
		Status:  ptr(models.ReportStatusOnHold),
		RTNotes: ptr("rejected: " + reason),
	}, "RT rejected: " + reason
}

func confirm(_ State, cmd Command) (models.ReportPatch, string) {
	patch := models.ReportPatch{Status: ptr(models.ReportStatusInProgress)}
	if notes := strings.TrimSpace(cmd.Notes); notes != "" {
		patch.AdminNotes = ptr(notes)
	}
	return patch, withNotes("Confirmed by "+string(cmd.Actor.Role), cmd.Notes)
}

func complete(_ State, cmd Command) (models.ReportPatch, string) {
	patch := models.ReportPatch{Status: ptr(models.ReportStatusDone)}
	notes := strings.TrimSpace(cmd.Notes)
	if notes == "" {
		return patch, "Completed by " + string(cmd.Actor.Role)
	}
	patch.AdminNotes = ptr(notes)
	return patch, notes
}

func updateStatus(state State, cmd Command) (models.ReportPatch, string) {
	notes := strings.TrimSpace(cmd.Notes)
	if notes == "" {
		notes = fmt.Sprintf("Status changed from %s to %s", state.Status, cmd.Target)
	}
	return models.ReportPatch{
		Status:     ptr(cmd.Target),
		AdminNotes: ptr(notes),
	}, notes
}

func assign(_ State, cmd Command) (models.ReportPatch, string) {
	notes := strings.TrimSpace(cmd.Notes)
	if notes == "" {
		name := cmd.AssigneeName
		if name == "" {
			name = cmd.AssigneeID
		}
		notes = "Assigned to " + name
	}
	return models.ReportPatch{
		Status:     ptr(models.ReportStatusInProgress),
		AssignedTo: ptr(cmd.AssigneeID),
	}, notes
}
