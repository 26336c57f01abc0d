package workflow

import (
	"fmt"

	"github.com/noah-isme/laporpak-api/internal/models"
	appErrors "github.com/noah-isme/laporpak-api/pkg/errors"
)

// Policy is the static capability table consulted before the machine.
type Policy struct {
	mode         Mode
	capabilities map[Action]map[models.UserRole]struct{}
}

func roles(list ...models.UserRole) map[models.UserRole]struct{} {
	set := make(map[models.UserRole]struct{}, len(list))
	for _, r := range list {
		set[r] = struct{}{}
	}
	return set
}

// NewPolicy builds the capability table for mode.
func NewPolicy(mode Mode) *Policy {
	everyone := []models.UserRole{models.RoleWarga, models.RoleRT, models.RolePetugas, models.RoleAdmin}
	caps := map[Action]map[models.UserRole]struct{}{
		ActionSubmit:       roles(everyone...),
		ActionRecommend:    roles(models.RoleRT),
		ActionReject:       roles(models.RoleRT),
		ActionConfirm:      roles(models.RoleAdmin),
		ActionComplete:     roles(models.RoleAdmin),
		ActionAssign:       roles(models.RoleAdmin),
		ActionUpdateStatus: roles(models.RoleAdmin, models.RolePetugas),
	}
	if mode == ModeTwoParty {
		caps[ActionRecommend] = roles()
		caps[ActionConfirm] = roles(models.RoleAdmin, models.RoleRT)
		caps[ActionComplete] = roles(models.RoleAdmin, models.RoleRT)
		caps[ActionUpdateStatus] = roles(models.RoleAdmin, models.RolePetugas, models.RoleRT)
	}
	return &Policy{mode: mode, capabilities: caps}
}

// Mode returns the deployment mode the table was built for.
func (p *Policy) Mode() Mode { return p.mode }

// Allows reports whether role may invoke action.
func (p *Policy) Allows(role models.UserRole, action Action) bool {
	set, ok := p.capabilities[action]
	if !ok {
		return false
	}
	_, ok = set[role]
	return ok
}

// Authorize returns Forbidden when the actor's role is outside the permitted set.
func (p *Policy) Authorize(actor models.Actor, action Action) error {
	if actor.ID == "" {
		return appErrors.ErrUnauthorized
	}
	if !p.Allows(actor.Role, action) {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not %s reports", actor.Role, action))
	}
	return nil
}

// CanDelete applies the ownership rule: the submitter or an admin.
func (p *Policy) CanDelete(actor models.Actor, report *models.Report) bool {
	if report == nil || actor.ID == "" {
		return false
	}
	return actor.Role == models.RoleAdmin || report.UserID == actor.ID
}

// Actions lists the transition actions role may invoke from state.
func (p *Policy) Actions(m *Machine, role models.UserRole, state State) []Action {
	out := make([]Action, 0, len(transitionActions))
	for _, action := range m.Transitions(state) {
		if p.Allows(role, action) {
			out = append(out, action)
		}
	}
	return out
}
