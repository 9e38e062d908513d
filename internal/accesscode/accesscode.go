// Package accesscode issues and redeems the invitation codes that bring users
// into an organization.
package accesscode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmclain4200/approcure/internal/access"
	"github.com/cmclain4200/approcure/internal/apperr"
	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/internal/events"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/cmclain4200/approcure/internal/store"
	"github.com/cmclain4200/approcure/pkg/metrics"
	"github.com/google/uuid"
)

var (
	ErrInvalidCode   = apperr.New(apperr.NotFound, "access code not found")
	ErrCodeDisabled  = apperr.New(apperr.ExpiredOrExhausted, "access code has been disabled")
	ErrExpired       = apperr.New(apperr.ExpiredOrExhausted, "access code has expired")
	ErrExhaustedCode = apperr.New(apperr.ExpiredOrExhausted, "access code has no remaining uses")
	ErrAlreadyMember = apperr.New(apperr.Conflict, "user already belongs to an organization")
)

const (
	codeLength = 8
	// codeAlphabet leaves out 0/O and 1/I. Its 32 symbols make a masked
	// random byte uniform.
	codeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxCodeAttempts = 5
)

type Service struct {
	store     *store.Store
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(st *store.Store, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		store:     st,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// IssueInput describes a new code. ExpiresInDays is used when ExpiresAt is nil.
// ProjectID and ProjectRole are given together or not at all.
type IssueInput struct {
	OrgRole       rbac.OrgRole
	MaxUses       int
	ExpiresAt     *time.Time
	ExpiresInDays int
	ProjectID     *uuid.UUID
	ProjectRole   rbac.ProjectRole
}

// ClaimResult is what a successful claim granted.
type ClaimResult struct {
	Organization   *models.Organization `json:"organization"`
	GrantedOrgRole rbac.OrgRole         `json:"granted_org_role"`
	ProjectID      *uuid.UUID           `json:"project_id,omitempty"`
	ProjectRole    rbac.ProjectRole     `json:"project_role,omitempty"`
}

// Issue creates a code on behalf of issuer. The issuer may only hand out an
// org role at or below their own rank, and may only attach a project role if
// they administer the organization or that project.
func (s *Service) Issue(ctx context.Context, issuer *access.Identity, in IssueInput) (*models.AccessCode, error) {
	if !issuer.Active() {
		return nil, apperr.New(apperr.Forbidden, "issuer is not an active organization member")
	}

	expiresAt, err := s.validateIssue(in)
	if err != nil {
		return nil, err
	}

	if !rbac.CanGrantOrgRole(issuer.OrgRole, in.OrgRole) {
		return nil, apperr.Newf(apperr.EscalationDenied,
			"%s cannot issue codes granting %s", roleLabel(issuer.OrgRole), in.OrgRole.Label())
	}

	if in.ProjectID != nil {
		if _, err := s.store.GetProject(ctx, issuer.OrganizationID, *in.ProjectID); err != nil {
			return nil, err
		}
		role, _ := issuer.ProjectRole(*in.ProjectID)
		if !issuer.IsOrgAdmin() && role != rbac.ProjectRoleAdmin {
			return nil, apperr.New(apperr.EscalationDenied,
				"only organization admins or the project's admins can grant project roles")
		}
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "generating access code", err)
		}

		ac := &models.AccessCode{
			OrganizationID: issuer.OrganizationID,
			Code:           code,
			IssuedBy:       issuer.UserID,
			OrgRole:        in.OrgRole,
			ProjectID:      in.ProjectID,
			ProjectRole:    in.ProjectRole,
			MaxUses:        in.MaxUses,
			ExpiresAt:      expiresAt,
			Status:         models.AccessCodeActive,
		}

		err = s.store.Tx(ctx, func(tx *store.Store) error {
			if err := tx.CreateAccessCode(ctx, ac); err != nil {
				return err
			}
			return tx.AppendAudit(ctx, &models.AuditEntry{
				OrganizationID: ac.OrganizationID,
				TargetType:     models.AuditTargetAccessCode,
				TargetID:       ac.ID,
				Action:         models.AuditAccessCodeCreated,
				ActorID:        issuer.UserID,
				Details:        fmt.Sprintf("Code %s grants %s, %d use(s)", ac.Code, ac.OrgRole.Label(), ac.MaxUses),
			})
		})
		if errors.Is(err, store.ErrDuplicate) {
			s.logger.Debug("access code collision, retrying", "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info("access code issued",
			"org_id", ac.OrganizationID,
			"code_id", ac.ID,
			"org_role", ac.OrgRole,
			"max_uses", ac.MaxUses,
		)
		return ac, nil
	}

	return nil, apperr.New(apperr.Conflict, "could not allocate a unique access code, retry")
}

func (s *Service) validateIssue(in IssueInput) (*time.Time, error) {
	if !in.OrgRole.Valid() {
		return nil, apperr.Newf(apperr.Validation, "unknown organization role %q", in.OrgRole)
	}
	if in.MaxUses < 1 {
		return nil, apperr.New(apperr.Validation, "max uses must be at least 1")
	}
	if (in.ProjectID == nil) != (in.ProjectRole == "") {
		return nil, apperr.New(apperr.Validation, "a project grant needs both a project and a project role")
	}
	if in.ProjectRole != "" && !in.ProjectRole.Valid() {
		return nil, apperr.Newf(apperr.Validation, "unknown project role %q", in.ProjectRole)
	}
	if in.ExpiresInDays < 0 {
		return nil, apperr.New(apperr.Validation, "expiry must be in the future")
	}

	now := s.now()
	var expiresAt *time.Time
	switch {
	case in.ExpiresAt != nil:
		t := in.ExpiresAt.UTC()
		expiresAt = &t
	case in.ExpiresInDays > 0:
		t := now.AddDate(0, 0, in.ExpiresInDays)
		expiresAt = &t
	}
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, apperr.New(apperr.Validation, "expiry must be in the future")
	}
	return expiresAt, nil
}

// Claim redeems code for claimantID. The use-count increment, the membership
// change and the audit entry commit together or not at all.
func (s *Service) Claim(ctx context.Context, code string, claimantID uuid.UUID) (*ClaimResult, error) {
	result, err := s.claim(ctx, code, claimantID)
	metrics.RecordClaim(claimOutcome(err))
	return result, err
}

func (s *Service) claim(ctx context.Context, code string, claimantID uuid.UUID) (*ClaimResult, error) {
	user, err := s.store.GetUser(ctx, claimantID)
	if err != nil {
		return nil, err
	}
	if user.Disabled {
		return nil, apperr.New(apperr.Forbidden, "account is disabled")
	}
	if user.OrganizationID != nil {
		return nil, ErrAlreadyMember
	}

	ac, err := s.store.GetAccessCodeByCode(ctx, code)
	if apperr.Is(err, apperr.NotFound) {
		return nil, ErrInvalidCode
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := redeemable(ac, now); err != nil {
		return nil, err
	}

	err = s.store.Tx(ctx, func(tx *store.Store) error {
		if err := tx.IncrementCodeUse(ctx, ac.ID, now); err != nil {
			if !errors.Is(err, store.ErrNotApplied) {
				return err
			}
			current, rerr := tx.GetAccessCode(ctx, ac.OrganizationID, ac.ID)
			if rerr != nil {
				return rerr
			}
			if rerr := redeemable(current, now); rerr != nil {
				return rerr
			}
			return ErrExhaustedCode
		}

		if err := tx.AttachOrganization(ctx, user.ID, ac.OrganizationID); err != nil {
			if errors.Is(err, store.ErrNotApplied) {
				return ErrAlreadyMember
			}
			return err
		}

		if err := tx.PutOrgBinding(ctx, &models.OrgRoleBinding{
			UserID:         user.ID,
			OrganizationID: ac.OrganizationID,
			Role:           ac.OrgRole,
		}); err != nil {
			return err
		}

		if ac.HasProjectGrant() {
			if err := tx.UpsertProjectBinding(ctx, &models.ProjectRoleBinding{
				UserID:         user.ID,
				ProjectID:      *ac.ProjectID,
				OrganizationID: ac.OrganizationID,
				Role:           ac.ProjectRole,
			}); err != nil {
				return err
			}
		}

		return tx.AppendAudit(ctx, &models.AuditEntry{
			OrganizationID: ac.OrganizationID,
			TargetType:     models.AuditTargetAccessCode,
			TargetID:       ac.ID,
			Action:         models.AuditAccessCodeClaimed,
			ActorID:        user.ID,
			Details:        fmt.Sprintf("%s joined as %s", user.Email, ac.OrgRole.Label()),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("access code claimed",
		"org_id", ac.OrganizationID,
		"code_id", ac.ID,
		"user_id", user.ID,
		"org_role", ac.OrgRole,
	)

	events.Emit(ctx, s.publisher, s.logger, events.Event{
		Type:           events.TypeAccessCodeClaimed,
		OrganizationID: ac.OrganizationID,
		TargetID:       user.ID,
		ActorID:        user.ID,
		To:             string(ac.OrgRole),
		Reference:      ac.Code,
	})

	org, err := s.store.GetOrganization(ctx, ac.OrganizationID)
	if err != nil {
		return nil, err
	}

	result := &ClaimResult{Organization: org, GrantedOrgRole: ac.OrgRole}
	if ac.HasProjectGrant() {
		result.ProjectID = ac.ProjectID
		result.ProjectRole = ac.ProjectRole
	}
	return result, nil
}

// Disable stops a code from being claimed. Callers need
// org.manage_access_codes or must have issued the code themselves.
func (s *Service) Disable(ctx context.Context, actor *access.Identity, codeID uuid.UUID) (*models.AccessCode, error) {
	if !actor.Active() {
		return nil, apperr.New(apperr.Forbidden, "not an active organization member")
	}

	ac, err := s.store.GetAccessCode(ctx, actor.OrganizationID, codeID)
	if err != nil {
		return nil, err
	}
	if ac.IssuedBy != actor.UserID {
		if err := access.Require(actor, rbac.OrgManageAccessCodes, nil); err != nil {
			return nil, err
		}
	}

	err = s.store.Tx(ctx, func(tx *store.Store) error {
		if err := tx.DisableAccessCode(ctx, actor.OrganizationID, codeID); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, &models.AuditEntry{
			OrganizationID: actor.OrganizationID,
			TargetType:     models.AuditTargetAccessCode,
			TargetID:       codeID,
			Action:         models.AuditAccessCodeDisabled,
			ActorID:        actor.UserID,
			Details:        fmt.Sprintf("Code %s disabled", ac.Code),
		})
	})
	if err != nil {
		return nil, err
	}

	ac.Status = models.AccessCodeDisabled
	return ac, nil
}

// List returns the organization's codes, newest first.
func (s *Service) List(ctx context.Context, actor *access.Identity) ([]models.AccessCode, error) {
	if err := access.Require(actor, rbac.OrgManageAccessCodes, nil); err != nil {
		return nil, err
	}
	return s.store.ListAccessCodes(ctx, actor.OrganizationID)
}

// DisableExpired disables every active code whose expiry is at or before now
// and reports how many it changed.
func (s *Service) DisableExpired(ctx context.Context, now time.Time) (int, error) {
	var disabled int
	err := s.store.Tx(ctx, func(tx *store.Store) error {
		codes, err := tx.ListExpiredCodes(ctx, now)
		if err != nil {
			return err
		}
		for _, ac := range codes {
			if err := tx.DisableAccessCode(ctx, ac.OrganizationID, ac.ID); err != nil {
				return err
			}
			if err := tx.AppendAudit(ctx, &models.AuditEntry{
				OrganizationID: ac.OrganizationID,
				TargetType:     models.AuditTargetAccessCode,
				TargetID:       ac.ID,
				Action:         models.AuditAccessCodeDisabled,
				Details:        fmt.Sprintf("Code %s expired", ac.Code),
			}); err != nil {
				return err
			}
		}
		disabled = len(codes)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if disabled > 0 {
		s.logger.Info("disabled expired access codes", "count", disabled)
	}
	return disabled, nil
}

func redeemable(ac *models.AccessCode, now time.Time) error {
	if ac.Redeemable(now) {
		return nil
	}
	switch {
	case ac.Status != models.AccessCodeActive:
		return ErrCodeDisabled
	case ac.Expired(now):
		return ErrExpired
	case ac.Exhausted():
		return ErrExhaustedCode
	}
	return nil
}

func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)&(len(codeAlphabet)-1)]
	}
	return string(buf), nil
}

func roleLabel(r rbac.OrgRole) string {
	if l := r.Label(); l != "" {
		return l
	}
	return "caller"
}

func claimOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrExhaustedCode):
		return "exhausted"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrCodeDisabled):
		return "disabled"
	default:
		return apperr.KindOf(err).String()
	}
}
