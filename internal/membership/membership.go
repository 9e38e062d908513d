// Package membership changes who belongs to an organization and which roles
// they hold there. Each change commits together with a user-targeted audit
// entry.
package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmclain4200/approcure/internal/access"
	"github.com/cmclain4200/approcure/internal/apperr"
	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/cmclain4200/approcure/internal/store"
	"github.com/google/uuid"
)

var ErrLastOwner = apperr.New(apperr.Conflict, "an organization must keep at least one owner")

// errUnchanged ends a role change that would be a no-op.
var errUnchanged = errors.New("role unchanged")

type Service struct {
	store  *store.Store
	logger *slog.Logger
}

func NewService(st *store.Store, logger *slog.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// Member is a user together with their current roles.
type Member struct {
	User         models.User                    `json:"user"`
	OrgRole      rbac.OrgRole                   `json:"org_role"`
	ProjectRoles map[uuid.UUID]rbac.ProjectRole `json:"project_roles"`
}

// List returns every member of the actor's organization.
func (s *Service) List(ctx context.Context, actor *access.Identity) ([]Member, error) {
	if !actor.Active() {
		return nil, access.Require(actor, rbac.OrgManageUsers, nil)
	}

	users, err := s.store.ListMembers(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}

	out := make([]Member, 0, len(users))
	for _, u := range users {
		m := Member{User: u, ProjectRoles: map[uuid.UUID]rbac.ProjectRole{}}
		binding, err := s.store.GetOrgBinding(ctx, u.ID)
		switch {
		case apperr.Is(err, apperr.NotFound):
		case err != nil:
			return nil, err
		case binding.OrganizationID == actor.OrganizationID:
			m.OrgRole = binding.Role
		}
		projects, err := s.store.ListProjectBindings(ctx, actor.OrganizationID, u.ID)
		if err != nil {
			return nil, err
		}
		for _, b := range projects {
			m.ProjectRoles[b.ProjectID] = b.Role
		}
		out = append(out, m)
	}
	return out, nil
}

// Leave removes actor from their organization: the org binding and every
// project binding go, and the user becomes unaffiliated. Requests and audit
// entries keep their attribution. The last owner cannot leave.
func (s *Service) Leave(ctx context.Context, actor *access.Identity) error {
	if actor == nil || actor.OrganizationID == uuid.Nil {
		return apperr.New(apperr.Validation, "not a member of any organization")
	}
	orgID := actor.OrganizationID

	err := s.store.Tx(ctx, func(tx *store.Store) error {
		if err := tx.LockOrganization(ctx, orgID); err != nil {
			return err
		}
		current, err := currentRole(ctx, tx, orgID, actor.UserID)
		if err != nil {
			return err
		}
		if current == rbac.OrgRoleOwner {
			if err := lastOwnerGuard(ctx, tx, orgID); err != nil {
				return err
			}
		}
		if err := tx.DeleteProjectBindings(ctx, orgID, actor.UserID); err != nil {
			return err
		}
		if err := tx.DeleteOrgBinding(ctx, orgID, actor.UserID); err != nil {
			return err
		}
		if err := tx.DetachOrganization(ctx, orgID, actor.UserID); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, userAudit(orgID, actor.UserID, actor.UserID,
			models.AuditMemberLeft, "Left the organization"))
	})
	if err != nil {
		return err
	}

	s.logger.Info("member left organization", "org_id", orgID, "user_id", actor.UserID)
	return nil
}

// SetOrgRole changes userID's organization role. The actor may neither grant
// a role above their own nor change someone who outranks them.
func (s *Service) SetOrgRole(ctx context.Context, actor *access.Identity, userID uuid.UUID, role rbac.OrgRole) error {
	if err := access.Require(actor, rbac.OrgManageUsers, nil); err != nil {
		return err
	}
	if !role.Valid() {
		return apperr.Newf(apperr.Validation, "unknown organization role %q", role)
	}
	if !rbac.CanGrantOrgRole(actor.OrgRole, role) {
		return apperr.Newf(apperr.EscalationDenied, "%s cannot grant %s", actor.OrgRole.Label(), role.Label())
	}

	var current rbac.OrgRole
	err := s.store.Tx(ctx, func(tx *store.Store) error {
		if err := tx.LockOrganization(ctx, actor.OrganizationID); err != nil {
			return err
		}
		actorRole, err := currentRole(ctx, tx, actor.OrganizationID, actor.UserID)
		if err != nil {
			return err
		}
		if !rbac.CanGrantOrgRole(actorRole, role) {
			return apperr.Newf(apperr.EscalationDenied, "%s cannot grant %s", actorRole.Label(), role.Label())
		}
		if current, err = currentRole(ctx, tx, actor.OrganizationID, userID); err != nil {
			return err
		}
		if rbac.Outranks(current, actorRole) {
			return apperr.Newf(apperr.EscalationDenied, "%s cannot change a %s", actorRole.Label(), current.Label())
		}
		if current == role {
			return errUnchanged
		}
		if current == rbac.OrgRoleOwner {
			if err := lastOwnerGuard(ctx, tx, actor.OrganizationID); err != nil {
				return err
			}
		}
		if err := tx.SetOrgRole(ctx, actor.OrganizationID, userID, role); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, userAudit(actor.OrganizationID, userID, actor.UserID,
			models.AuditMemberRoleChanged, fmt.Sprintf("Role changed from %s to %s", current.Label(), role.Label())))
	})
	if errors.Is(err, errUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Info("organization role changed",
		"org_id", actor.OrganizationID,
		"user_id", userID,
		"from", current,
		"to", role,
		"actor_id", actor.UserID,
	)
	return nil
}

// AssignProjectRole gives userID role on projectID, replacing any role they
// already hold there.
func (s *Service) AssignProjectRole(ctx context.Context, actor *access.Identity, userID, projectID uuid.UUID, role rbac.ProjectRole) error {
	if err := requireProjectMembers(actor, projectID); err != nil {
		return err
	}
	if !role.Valid() {
		return apperr.Newf(apperr.Validation, "unknown project role %q", role)
	}

	project, err := s.store.GetProject(ctx, actor.OrganizationID, projectID)
	if err != nil {
		return err
	}
	user, err := s.store.GetMember(ctx, actor.OrganizationID, userID)
	if err != nil {
		return err
	}

	err = s.store.Tx(ctx, func(tx *store.Store) error {
		if err := tx.UpsertProjectBinding(ctx, &models.ProjectRoleBinding{
			UserID:         user.ID,
			ProjectID:      project.ID,
			OrganizationID: actor.OrganizationID,
			Role:           role,
		}); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, userAudit(actor.OrganizationID, user.ID, actor.UserID,
			models.AuditMemberProjectRole, fmt.Sprintf("%s on %s", role.Label(), project.Name)))
	})
	if err != nil {
		return err
	}

	s.logger.Info("project role assigned",
		"org_id", actor.OrganizationID,
		"project_id", project.ID,
		"user_id", user.ID,
		"role", role,
	)
	return nil
}

func (s *Service) RemoveProjectRole(ctx context.Context, actor *access.Identity, userID, projectID uuid.UUID) error {
	if err := requireProjectMembers(actor, projectID); err != nil {
		return err
	}

	project, err := s.store.GetProject(ctx, actor.OrganizationID, projectID)
	if err != nil {
		return err
	}

	return s.store.Tx(ctx, func(tx *store.Store) error {
		if err := tx.DeleteProjectBinding(ctx, actor.OrganizationID, userID, projectID); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, userAudit(actor.OrganizationID, userID, actor.UserID,
			models.AuditMemberProjectDrop, "Removed from "+project.Name))
	})
}

// SetDisabled disables or re-enables a member. Disabled members keep their
// bindings but hold no permissions.
func (s *Service) SetDisabled(ctx context.Context, actor *access.Identity, userID uuid.UUID, disabled bool) error {
	if err := access.Require(actor, rbac.OrgManageUsers, nil); err != nil {
		return err
	}
	if userID == actor.UserID {
		return apperr.New(apperr.Validation, "you cannot disable your own account")
	}

	action, details := models.AuditMemberEnabled, "Account enabled"
	if disabled {
		action, details = models.AuditMemberDisabled, "Account disabled"
	}

	err := s.store.Tx(ctx, func(tx *store.Store) error {
		if err := tx.LockOrganization(ctx, actor.OrganizationID); err != nil {
			return err
		}
		actorRole, err := currentRole(ctx, tx, actor.OrganizationID, actor.UserID)
		if err != nil {
			return err
		}
		current, err := currentRole(ctx, tx, actor.OrganizationID, userID)
		if err != nil {
			return err
		}
		if actorRole == rbac.OrgRoleMember || rbac.Outranks(current, actorRole) {
			return apperr.Newf(apperr.EscalationDenied, "%s cannot change a %s", actorRole.Label(), current.Label())
		}
		if err := tx.SetUserDisabled(ctx, actor.OrganizationID, userID, disabled); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, userAudit(actor.OrganizationID, userID, actor.UserID, action, details))
	})
	if err != nil {
		return err
	}

	s.logger.Info("member account updated", "org_id", actor.OrganizationID, "user_id", userID, "disabled", disabled)
	return nil
}

// currentRole returns the org role userID holds in orgID. Members without a
// binding count as plain members.
func currentRole(ctx context.Context, tx *store.Store, orgID, userID uuid.UUID) (rbac.OrgRole, error) {
	if _, err := tx.GetMember(ctx, orgID, userID); err != nil {
		return "", err
	}
	binding, err := tx.GetOrgBinding(ctx, userID)
	switch {
	case apperr.Is(err, apperr.NotFound):
		return rbac.OrgRoleMember, nil
	case err != nil:
		return "", err
	case binding.OrganizationID != orgID:
		return rbac.OrgRoleMember, nil
	}
	return binding.Role, nil
}

func requireProjectMembers(actor *access.Identity, projectID uuid.UUID) error {
	if actor.IsOrgAdmin() {
		return nil
	}
	return access.Require(actor, rbac.ProjectManageMembers, access.Scope(projectID))
}

func lastOwnerGuard(ctx context.Context, tx *store.Store, orgID uuid.UUID) error {
	owners, err := tx.CountOrgRole(ctx, orgID, rbac.OrgRoleOwner)
	if err != nil {
		return err
	}
	if owners <= 1 {
		return ErrLastOwner
	}
	return nil
}

func userAudit(orgID, userID, actorID uuid.UUID, action, details string) *models.AuditEntry {
	return &models.AuditEntry{
		OrganizationID: orgID,
		TargetType:     models.AuditTargetUser,
		TargetID:       userID,
		Action:         action,
		ActorID:        actorID,
		Details:        details,
	}
}
