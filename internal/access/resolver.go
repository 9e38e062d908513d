package access

import (
	"context"
	"fmt"

	"github.com/cmclain4200/approcure/internal/apperr"
	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/google/uuid"
)

// BindingReader is the slice of the store the resolver reads.
type BindingReader interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetOrgBinding(ctx context.Context, userID uuid.UUID) (*models.OrgRoleBinding, error)
	ListProjectBindings(ctx context.Context, orgID, userID uuid.UUID) ([]models.ProjectRoleBinding, error)
}

// Resolver builds identities from current store state.
type Resolver struct {
	store BindingReader
}

func NewResolver(store BindingReader) *Resolver {
	return &Resolver{store: store}
}

// Resolve loads the user and their bindings. A user outside any organization
// resolves to an identity with no organization; a member without an org
// binding resolves with no org role.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (*Identity, error) {
	user, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolving identity: %w", err)
	}

	id := &Identity{
		UserID:          user.ID,
		Disabled:        user.Disabled,
		ProjectBindings: map[uuid.UUID]rbac.ProjectRole{},
	}
	if user.OrganizationID == nil {
		return id, nil
	}
	id.OrganizationID = *user.OrganizationID

	binding, err := r.store.GetOrgBinding(ctx, user.ID)
	switch {
	case apperr.Is(err, apperr.NotFound):
	case err != nil:
		return nil, fmt.Errorf("resolving org role: %w", err)
	case binding.OrganizationID == id.OrganizationID:
		id.OrgRole = binding.Role
	}

	bindings, err := r.store.ListProjectBindings(ctx, id.OrganizationID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("resolving project roles: %w", err)
	}
	for _, b := range bindings {
		id.ProjectBindings[b.ProjectID] = b.Role
	}

	return id, nil
}
