// Package projects manages projects and the organization's financial
// reference data: cost codes, vendors and per-project finance requirements.
package projects

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/cmclain4200/approcure/internal/access"
	"github.com/cmclain4200/approcure/internal/apperr"
	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/cmclain4200/approcure/internal/store"
	"github.com/google/uuid"
)

var ErrDuplicateCostCode = apperr.New(apperr.Conflict, "cost code already exists")

type Service struct {
	store  *store.Store
	logger *slog.Logger
}

func NewService(st *store.Store, logger *slog.Logger) *Service {
	return &Service{store: st, logger: logger}
}

type CreateInput struct {
	Name          string
	JobNumber     string
	Address       string
	MonthlyBudget float64
	Phase         models.ProjectPhase
}

// FinanceRequirements is the set of fields an approved request on a project
// must carry.
type FinanceRequirements struct {
	RequireCostCode          bool `json:"require_cost_code"`
	RequireVendor            bool `json:"require_vendor"`
	RequirePONumber          bool `json:"require_po_number"`
	RequireReceiptAttachment bool `json:"require_receipt_attachment"`
	RequireDescription       bool `json:"require_description"`
}

var validPhases = map[models.ProjectPhase]bool{
	models.PhasePreconstruction: true,
	models.PhaseFoundation:      true,
	models.PhaseStructural:      true,
	models.PhaseFraming:         true,
	models.PhaseMEP:             true,
	models.PhaseFinishes:        true,
	models.PhaseCloseout:        true,
}

// Create adds a project and makes its creator the project admin, since
// organization roles carry no project permissions of their own.
func (s *Service) Create(ctx context.Context, actor *access.Identity, in CreateInput) (*models.Project, error) {
	if err := access.Require(actor, rbac.OrgManageSettings, nil); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.New(apperr.Validation, "project name is required")
	}
	if err := validBudget(in.MonthlyBudget); err != nil {
		return nil, err
	}
	if in.Phase == "" {
		in.Phase = models.PhasePreconstruction
	}
	if !validPhases[in.Phase] {
		return nil, apperr.Newf(apperr.Validation, "unknown phase %q", in.Phase)
	}

	project := &models.Project{
		OrganizationID: actor.OrganizationID,
		Name:           name,
		JobNumber:      strings.TrimSpace(in.JobNumber),
		Address:        strings.TrimSpace(in.Address),
		MonthlyBudget:  models.RoundCents(in.MonthlyBudget),
		Status:         models.ProjectStatusActive,
		Phase:          in.Phase,
	}

	err := s.store.Tx(ctx, func(tx *store.Store) error {
		if err := tx.CreateProject(ctx, project); err != nil {
			return err
		}
		return tx.UpsertProjectBinding(ctx, &models.ProjectRoleBinding{
			UserID:         actor.UserID,
			ProjectID:      project.ID,
			OrganizationID: actor.OrganizationID,
			Role:           rbac.ProjectRoleAdmin,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("project created", "org_id", project.OrganizationID, "project_id", project.ID, "name", project.Name)
	return project, nil
}

// List returns the projects actor can view. Owners and org admins see every
// project of the organization.
func (s *Service) List(ctx context.Context, actor *access.Identity) ([]models.Project, error) {
	if !actor.Active() {
		return nil, access.Require(actor, rbac.ProjectView, nil)
	}

	all, err := s.store.ListProjects(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}

	out := make([]models.Project, 0, len(all))
	for _, p := range all {
		if canView(actor, p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, actor *access.Identity, id uuid.UUID) (*models.Project, error) {
	if !canView(actor, id) {
		return nil, access.Require(actor, rbac.ProjectView, access.Scope(id))
	}
	return s.store.GetProject(ctx, actor.OrganizationID, id)
}

func (s *Service) SetMonthlyBudget(ctx context.Context, actor *access.Identity, id uuid.UUID, budget float64) (*models.Project, error) {
	if err := access.Require(actor, rbac.ProjectEditBudget, access.Scope(id)); err != nil {
		return nil, err
	}
	if err := validBudget(budget); err != nil {
		return nil, err
	}
	if err := s.store.SetMonthlyBudget(ctx, actor.OrganizationID, id, models.RoundCents(budget)); err != nil {
		return nil, err
	}
	return s.store.GetProject(ctx, actor.OrganizationID, id)
}

func (s *Service) FinanceRequirements(ctx context.Context, actor *access.Identity, projectID uuid.UUID) (*FinanceRequirements, error) {
	if !canView(actor, projectID) {
		return nil, access.Require(actor, rbac.ProjectView, access.Scope(projectID))
	}
	if _, err := s.store.GetProject(ctx, actor.OrganizationID, projectID); err != nil {
		return nil, err
	}
	settings, err := s.store.GetFinanceSettings(ctx, actor.OrganizationID, projectID)
	if err != nil {
		return nil, err
	}
	return fromSettings(settings), nil
}

func (s *Service) SetFinanceRequirements(ctx context.Context, actor *access.Identity, projectID uuid.UUID, req FinanceRequirements) (*FinanceRequirements, error) {
	if err := access.Require(actor, rbac.FinanceRequirementsManage, access.Scope(projectID)); err != nil {
		return nil, err
	}
	if _, err := s.store.GetProject(ctx, actor.OrganizationID, projectID); err != nil {
		return nil, err
	}

	settings := &models.ProjectFinanceSettings{
		ProjectID:                projectID,
		OrganizationID:           actor.OrganizationID,
		RequireCostCode:          req.RequireCostCode,
		RequireVendor:            req.RequireVendor,
		RequirePONumber:          req.RequirePONumber,
		RequireReceiptAttachment: req.RequireReceiptAttachment,
		RequireDescription:       req.RequireDescription,
	}
	if err := s.store.UpsertFinanceSettings(ctx, settings); err != nil {
		return nil, err
	}

	s.logger.Info("finance requirements updated", "org_id", actor.OrganizationID, "project_id", projectID)
	return fromSettings(*settings), nil
}

// CostCodes lists the organization's cost codes to any active member.
func (s *Service) CostCodes(ctx context.Context, actor *access.Identity) ([]models.CostCode, error) {
	if !actor.Active() {
		return nil, access.Require(actor, rbac.FinanceManageCostCodes, nil)
	}
	return s.store.ListCostCodes(ctx, actor.OrganizationID)
}

func (s *Service) CreateCostCode(ctx context.Context, actor *access.Identity, code, label, category string) (*models.CostCode, error) {
	if err := access.Require(actor, rbac.FinanceManageCostCodes, nil); err != nil {
		return nil, err
	}
	code, label = strings.TrimSpace(code), strings.TrimSpace(label)
	if code == "" || label == "" {
		return nil, apperr.New(apperr.Validation, "cost code and label are required")
	}

	cc := &models.CostCode{
		OrganizationID: actor.OrganizationID,
		Code:           code,
		Label:          label,
		Category:       strings.TrimSpace(category),
	}
	if err := s.store.CreateCostCode(ctx, cc); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateCostCode
		}
		return nil, err
	}
	return cc, nil
}

// Vendors lists the organization's vendors to any active member.
func (s *Service) Vendors(ctx context.Context, actor *access.Identity) ([]models.Vendor, error) {
	if !actor.Active() {
		return nil, access.Require(actor, rbac.FinanceManageVendors, nil)
	}
	return s.store.ListVendors(ctx, actor.OrganizationID)
}

func (s *Service) CreateVendor(ctx context.Context, actor *access.Identity, name string) (*models.Vendor, error) {
	if err := access.Require(actor, rbac.FinanceManageVendors, nil); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.Validation, "vendor name is required")
	}

	v := &models.Vendor{OrganizationID: actor.OrganizationID, Name: name, Active: true}
	if err := s.store.CreateVendor(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func canView(actor *access.Identity, projectID uuid.UUID) bool {
	return actor.IsOrgAdmin() || access.Has(actor, rbac.ProjectView, access.Scope(projectID))
}

func validBudget(v float64) error {
	if !models.ValidAmount(v) {
		return apperr.New(apperr.Validation, "monthly budget cannot be negative")
	}
	return nil
}

func fromSettings(s models.ProjectFinanceSettings) *FinanceRequirements {
	return &FinanceRequirements{
		RequireCostCode:          s.RequireCostCode,
		RequireVendor:            s.RequireVendor,
		RequirePONumber:          s.RequirePONumber,
		RequireReceiptAttachment: s.RequireReceiptAttachment,
		RequireDescription:       s.RequireDescription,
	}
}
