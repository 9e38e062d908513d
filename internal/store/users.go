package store

import (
	"context"
	"strings"

	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return classify(db.Create(user).Error, "user")
}

// GetUser loads a user regardless of organization. Identity resolution is
// the only caller that may not know the organization yet.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, classify(err, "user")
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var user models.User
	if err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return nil, classify(err, "user")
	}
	return &user, nil
}

// GetMember loads a user that belongs to orgID.
func (s *Store) GetMember(ctx context.Context, orgID, userID uuid.UUID) (*models.User, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var user models.User
	if err := db.Where("id = ? AND organization_id = ?", userID, orgID).First(&user).Error; err != nil {
		return nil, classify(err, "user")
	}
	return &user, nil
}

func (s *Store) ListMembers(ctx context.Context, orgID uuid.UUID) ([]models.User, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var users []models.User
	if err := db.Where("organization_id = ?", orgID).Order("name ASC").Find(&users).Error; err != nil {
		return nil, classify(err, "users")
	}
	return users, nil
}

// AttachOrganization moves an unaffiliated user into orgID and marks them
// onboarded. It fails with ErrNotApplied if the user already belongs to an
// organization.
func (s *Store) AttachOrganization(ctx context.Context, userID, orgID uuid.UUID) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Model(&models.User{}).
		Where("id = ? AND organization_id IS NULL", userID).
		Updates(map[string]interface{}{
			"organization_id": orgID,
			"onboarded":       true,
		})
	if res.Error != nil {
		return classify(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return ErrNotApplied
	}
	return nil
}

// DetachOrganization clears the user's organization and onboarding state.
func (s *Store) DetachOrganization(ctx context.Context, orgID, userID uuid.UUID) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Model(&models.User{}).
		Where("id = ? AND organization_id = ?", userID, orgID).
		Updates(map[string]interface{}{
			"organization_id": nil,
			"onboarded":       false,
		})
	if res.Error != nil {
		return classify(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return classify(gorm.ErrRecordNotFound, "user")
	}
	return nil
}

func (s *Store) SetUserDisabled(ctx context.Context, orgID, userID uuid.UUID, disabled bool) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Model(&models.User{}).
		Where("id = ? AND organization_id = ?", userID, orgID).
		Update("disabled", disabled)
	if res.Error != nil {
		return classify(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return classify(gorm.ErrRecordNotFound, "user")
	}
	return nil
}

func (s *Store) GetOrgBinding(ctx context.Context, userID uuid.UUID) (*models.OrgRoleBinding, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var binding models.OrgRoleBinding
	if err := db.First(&binding, "user_id = ?", userID).Error; err != nil {
		return nil, classify(err, "organization role")
	}
	return &binding, nil
}

// PutOrgBinding writes the user's single organization role, replacing any
// binding left from a previous organization.
func (s *Store) PutOrgBinding(ctx context.Context, binding *models.OrgRoleBinding) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"organization_id", "role", "updated_at"}),
	}).Create(binding).Error
	return classify(err, "organization role")
}

func (s *Store) SetOrgRole(ctx context.Context, orgID, userID uuid.UUID, role rbac.OrgRole) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Model(&models.OrgRoleBinding{}).
		Where("user_id = ? AND organization_id = ?", userID, orgID).
		Update("role", role)
	if res.Error != nil {
		return classify(res.Error, "organization role")
	}
	if res.RowsAffected == 0 {
		return classify(gorm.ErrRecordNotFound, "organization role")
	}
	return nil
}

func (s *Store) CountOrgRole(ctx context.Context, orgID uuid.UUID, role rbac.OrgRole) (int64, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var n int64
	err := db.Model(&models.OrgRoleBinding{}).
		Where("organization_id = ? AND role = ?", orgID, role).
		Count(&n).Error
	return n, classify(err, "organization roles")
}

func (s *Store) DeleteOrgBinding(ctx context.Context, orgID, userID uuid.UUID) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	err := db.Where("user_id = ? AND organization_id = ?", userID, orgID).
		Delete(&models.OrgRoleBinding{}).Error
	return classify(err, "organization role")
}

func (s *Store) ListProjectBindings(ctx context.Context, orgID, userID uuid.UUID) ([]models.ProjectRoleBinding, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var bindings []models.ProjectRoleBinding
	err := db.Where("organization_id = ? AND user_id = ?", orgID, userID).Find(&bindings).Error
	if err != nil {
		return nil, classify(err, "project roles")
	}
	return bindings, nil
}

// UpsertProjectBinding writes the user's single role on a project, replacing
// any role already bound there.
func (s *Store) UpsertProjectBinding(ctx context.Context, binding *models.ProjectRoleBinding) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
	}).Create(binding).Error
	return classify(err, "project role")
}

func (s *Store) DeleteProjectBinding(ctx context.Context, orgID, userID, projectID uuid.UUID) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Where("organization_id = ? AND user_id = ? AND project_id = ?", orgID, userID, projectID).
		Delete(&models.ProjectRoleBinding{})
	if res.Error != nil {
		return classify(res.Error, "project role")
	}
	if res.RowsAffected == 0 {
		return classify(gorm.ErrRecordNotFound, "project role")
	}
	return nil
}

// DeleteProjectBindings removes every project role the user holds in orgID.
func (s *Store) DeleteProjectBindings(ctx context.Context, orgID, userID uuid.UUID) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	err := db.Where("organization_id = ? AND user_id = ?", orgID, userID).
		Delete(&models.ProjectRoleBinding{}).Error
	return classify(err, "project roles")
}
