package budget

import (
	"context"

	"github.com/cmclain4200/approcure/internal/access"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/cmclain4200/approcure/internal/store"
	"github.com/google/uuid"
)

// Service serves snapshots to callers holding project.view_budget.
type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

func (s *Service) Snapshot(ctx context.Context, actor *access.Identity, projectID uuid.UUID) (*Snapshot, error) {
	if err := access.Require(actor, rbac.ProjectViewBudget, access.Scope(projectID)); err != nil {
		return nil, err
	}
	return s.snapshot(ctx, actor.OrganizationID, projectID)
}

// ImpactResult pairs the snapshot a preview was computed from with its impact.
type ImpactResult struct {
	Snapshot Snapshot `json:"snapshot"`
	Amount   float64  `json:"amount"`
	Impact   Impact   `json:"impact"`
}

func (s *Service) Impact(ctx context.Context, actor *access.Identity, projectID uuid.UUID, amount float64) (*ImpactResult, error) {
	snap, err := s.Snapshot(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}
	return &ImpactResult{Snapshot: *snap, Amount: amount, Impact: snap.Impact(amount)}, nil
}

// Overview snapshots every project of the organization whose budget the
// caller may view, in project name order.
func (s *Service) Overview(ctx context.Context, actor *access.Identity) ([]Snapshot, error) {
	if !actor.Active() {
		return nil, access.Require(actor, rbac.ProjectViewBudget, nil)
	}

	projects, err := s.store.ListProjects(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}

	out := []Snapshot{}
	for i := range projects {
		p := &projects[i]
		if !access.Has(actor, rbac.ProjectViewBudget, access.Scope(p.ID)) {
			continue
		}
		reqs, err := s.store.ProjectRequests(ctx, actor.OrganizationID, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, NewSnapshot(p, reqs))
	}
	return out, nil
}

func (s *Service) snapshot(ctx context.Context, orgID, projectID uuid.UUID) (*Snapshot, error) {
	project, err := s.store.GetProject(ctx, orgID, projectID)
	if err != nil {
		return nil, err
	}
	reqs, err := s.store.ProjectRequests(ctx, orgID, projectID)
	if err != nil {
		return nil, err
	}
	snap := NewSnapshot(project, reqs)
	return &snap, nil
}
