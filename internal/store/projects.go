package store

import (
	"context"
	"errors"

	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) CreateProject(ctx context.Context, project *models.Project) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return classify(db.Create(project).Error, "project")
}

func (s *Store) GetProject(ctx context.Context, orgID, id uuid.UUID) (*models.Project, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var project models.Project
	if err := db.Where("id = ? AND organization_id = ?", id, orgID).First(&project).Error; err != nil {
		return nil, classify(err, "project")
	}
	return &project, nil
}

func (s *Store) ListProjects(ctx context.Context, orgID uuid.UUID) ([]models.Project, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var projects []models.Project
	if err := db.Where("organization_id = ?", orgID).Order("name ASC").Find(&projects).Error; err != nil {
		return nil, classify(err, "projects")
	}
	return projects, nil
}

// GetFinanceSettings returns the project's financial requirements. A project
// without a settings row requires nothing.
func (s *Store) GetFinanceSettings(ctx context.Context, orgID, projectID uuid.UUID) (models.ProjectFinanceSettings, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	settings := models.ProjectFinanceSettings{ProjectID: projectID, OrganizationID: orgID}
	err := db.Where("project_id = ? AND organization_id = ?", projectID, orgID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return settings, nil
	}
	if err != nil {
		return settings, classify(err, "finance settings")
	}
	return settings, nil
}

func (s *Store) UpsertFinanceSettings(ctx context.Context, settings *models.ProjectFinanceSettings) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"require_cost_code", "require_vendor", "require_po_number",
			"require_receipt_attachment", "require_description", "updated_at",
		}),
	}).Create(settings).Error
	return classify(err, "finance settings")
}

func (s *Store) CreateCostCode(ctx context.Context, code *models.CostCode) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return classify(db.Create(code).Error, "cost code")
}

func (s *Store) GetCostCode(ctx context.Context, orgID, id uuid.UUID) (*models.CostCode, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var code models.CostCode
	if err := db.Where("id = ? AND organization_id = ?", id, orgID).First(&code).Error; err != nil {
		return nil, classify(err, "cost code")
	}
	return &code, nil
}

func (s *Store) ListCostCodes(ctx context.Context, orgID uuid.UUID) ([]models.CostCode, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var codes []models.CostCode
	if err := db.Where("organization_id = ?", orgID).Order("code ASC").Find(&codes).Error; err != nil {
		return nil, classify(err, "cost codes")
	}
	return codes, nil
}

func (s *Store) CreateVendor(ctx context.Context, vendor *models.Vendor) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return classify(db.Create(vendor).Error, "vendor")
}

func (s *Store) GetVendor(ctx context.Context, orgID, id uuid.UUID) (*models.Vendor, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var vendor models.Vendor
	if err := db.Where("id = ? AND organization_id = ?", id, orgID).First(&vendor).Error; err != nil {
		return nil, classify(err, "vendor")
	}
	return &vendor, nil
}

func (s *Store) ListVendors(ctx context.Context, orgID uuid.UUID) ([]models.Vendor, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var vendors []models.Vendor
	if err := db.Where("organization_id = ?", orgID).Order("name ASC").Find(&vendors).Error; err != nil {
		return nil, classify(err, "vendors")
	}
	return vendors, nil
}

// SetMonthlyBudget replaces the project's monthly budget.
func (s *Store) SetMonthlyBudget(ctx context.Context, orgID, id uuid.UUID, budget float64) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Model(&models.Project{}).
		Where("id = ? AND organization_id = ?", id, orgID).
		Update("monthly_budget", budget)
	if res.Error != nil {
		return classify(res.Error, "project")
	}
	if res.RowsAffected == 0 {
		return classify(gorm.ErrRecordNotFound, "project")
	}
	return nil
}
