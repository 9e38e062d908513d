package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cmclain4200/approcure/internal/apperr"
	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/cmclain4200/approcure/internal/store"
	"github.com/google/uuid"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("user is inactive")
	ErrAlreadyOnboarded   = apperr.New(apperr.Conflict, "user already belongs to an organization")
)

type Service struct {
	store *store.Store
	jwt   *JWTService
}

func NewService(st *store.Store, jwt *JWTService) *Service {
	return &Service{store: st, jwt: jwt}
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	OrgName  string // Optional: create new org and become its owner
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates an account. With an organization name the user founds that
// organization as its owner; without one they stay unaffiliated until they
// claim an access code or create an organization.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	// Check if user exists
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !apperr.Is(err, apperr.NotFound) {
		return nil, err
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(input.Name),
	}

	var org *models.Organization
	err = s.store.Tx(ctx, func(tx *store.Store) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		if strings.TrimSpace(input.OrgName) == "" {
			return nil
		}
		org, err = foundOrganization(ctx, tx, user.ID, input.OrgName)
		return err
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, err
	}

	if org != nil {
		user.OrganizationID = &org.ID
		user.Onboarded = true
		user.Organization = org
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token: token,
		User:  user,
	}, nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	user, err := s.store.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if user.Disabled {
		return nil, ErrInactiveUser
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token: token,
		User:  user,
	}, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// CreateOrganization lets an unaffiliated user found an organization and
// become its owner.
func (s *Service) CreateOrganization(ctx context.Context, userID uuid.UUID, name string) (*models.Organization, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.New(apperr.Validation, "organization name is required")
	}

	var org *models.Organization
	err := s.store.Tx(ctx, func(tx *store.Store) error {
		var err error
		org, err = foundOrganization(ctx, tx, userID, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

func foundOrganization(ctx context.Context, tx *store.Store, userID uuid.UUID, name string) (*models.Organization, error) {
	name = strings.TrimSpace(name)
	org := &models.Organization{
		Name: name,
		Slug: generateSlug(name),
	}
	if err := tx.CreateOrganization(ctx, org); err != nil {
		return nil, err
	}

	if err := tx.AttachOrganization(ctx, userID, org.ID); err != nil {
		if errors.Is(err, store.ErrNotApplied) {
			return nil, ErrAlreadyOnboarded
		}
		return nil, err
	}

	err := tx.PutOrgBinding(ctx, &models.OrgRoleBinding{
		UserID:         userID,
		OrganizationID: org.ID,
		Role:           rbac.OrgRoleOwner,
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

func generateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "'", "")
	// Suffix keeps slugs unique across organizations with the same name
	return slug + "-" + time.Now().Format("0601021504") + "-" + uuid.New().String()[:4]
}
