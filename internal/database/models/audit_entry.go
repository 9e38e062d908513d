package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit target types
const (
	AuditTargetRequest    = "purchase_request"
	AuditTargetAccessCode = "access_code"
	AuditTargetUser       = "user"
)

// Request audit actions
const (
	AuditCreated   = "created"
	AuditSubmitted = "submitted"
	AuditApproved  = "approved"
	AuditRejected  = "rejected"
	AuditPurchased = "purchased"
	AuditUpdated   = "updated"
)

// Access code and membership audit actions
const (
	AuditAccessCodeCreated  = "access_code.created"
	AuditAccessCodeClaimed  = "access_code.claimed"
	AuditAccessCodeDisabled = "access_code.disabled"
	AuditMemberLeft         = "member.left"
	AuditMemberRoleChanged  = "member.org_role_changed"
	AuditMemberProjectRole  = "member.project_role_set"
	AuditMemberProjectDrop  = "member.project_role_removed"
	AuditMemberDisabled     = "member.disabled"
	AuditMemberEnabled      = "member.enabled"
)

// AuditEntry is append-only. The auto-increment ID breaks timestamp ties in
// insertion order.
type AuditEntry struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"organization_id"`
	TargetType     string    `gorm:"not null;index:idx_audit_target" json:"target_type"`
	TargetID       uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_target" json:"target_id"`
	Action         string    `gorm:"not null;index" json:"action"`
	ActorID        uuid.UUID `gorm:"type:uuid;index" json:"actor_id"`
	Details        string    `gorm:"type:text" json:"details,omitempty"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (AuditEntry) TableName() string {
	return "audit_entries"
}
