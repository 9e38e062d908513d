package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestStatusDraft     RequestStatus = "draft"
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusPurchased RequestStatus = "purchased"
)

// Terminal reports whether no further transition leaves s.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusRejected || s == RequestStatusPurchased
}

type RequestCategory string

const (
	CategoryMaterials       RequestCategory = "materials"
	CategoryTools           RequestCategory = "tools"
	CategoryEquipmentRental RequestCategory = "equipment-rental"
	CategorySubcontract     RequestCategory = "subcontract"
	CategoryOther           RequestCategory = "other"
)

type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyUrgent Urgency = "urgent"
)

type NeedBy string

const (
	NeedByToday    NeedBy = "today"
	NeedByTomorrow NeedBy = "tomorrow"
	NeedByThisWeek NeedBy = "this-week"
	NeedByNextWeek NeedBy = "next-week"
)

type DeliveryMethod string

const (
	DeliveryPickup   DeliveryMethod = "pickup"
	DeliveryDelivery DeliveryMethod = "delivery"
)

type PurchaseRequest struct {
	Base
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_requests_org_po" json:"organization_id"`
	PONumber       string    `gorm:"not null;uniqueIndex:idx_requests_org_po" json:"po_number"`
	ProjectID      uuid.UUID `gorm:"type:uuid;index;not null" json:"project_id"`
	RequesterID    uuid.UUID `gorm:"type:uuid;index;not null" json:"requester_id"`

	Vendor     string          `gorm:"not null;index" json:"vendor"`
	VendorID   *uuid.UUID      `gorm:"type:uuid" json:"vendor_id,omitempty"`
	Category   RequestCategory `gorm:"not null" json:"category"`
	CostCodeID *uuid.UUID      `gorm:"type:uuid" json:"cost_code_id,omitempty"`

	LineItems      []LineItem `gorm:"foreignKey:PurchaseRequestID" json:"line_items"`
	EstimatedTotal float64    `gorm:"not null;default:0" json:"estimated_total"`
	FinalTotal     *float64   `json:"final_total,omitempty"`

	Urgency         Urgency        `gorm:"not null;default:'normal'" json:"urgency"`
	NeedBy          NeedBy         `gorm:"not null" json:"need_by"`
	DeliveryMethod  DeliveryMethod `gorm:"not null" json:"delivery_method"`
	DeliveryAddress string         `json:"delivery_address,omitempty"`

	Notes              string     `gorm:"type:text" json:"notes"`
	Attachments        StringList `gorm:"type:text" json:"attachments"`
	ReceiptAttachments StringList `gorm:"type:text" json:"receipt_attachments"`
	AccountingNotes    string     `gorm:"type:text" json:"accounting_notes,omitempty"`
	POReference        string     `json:"po_reference,omitempty"`

	Status          RequestStatus `gorm:"not null;index;default:'draft'" json:"status"`
	SubmittedAt     *time.Time    `json:"submitted_at,omitempty"`
	ApprovedAt      *time.Time    `json:"approved_at,omitempty"`
	ApprovedBy      *uuid.UUID    `gorm:"type:uuid" json:"approved_by,omitempty"`
	RejectedAt      *time.Time    `json:"rejected_at,omitempty"`
	RejectedBy      *uuid.UUID    `gorm:"type:uuid" json:"rejected_by,omitempty"`
	RejectionReason string        `gorm:"type:text" json:"rejection_reason,omitempty"`
	PurchasedAt     *time.Time    `json:"purchased_at,omitempty"`
	PurchasedBy     *uuid.UUID    `gorm:"type:uuid" json:"purchased_by,omitempty"`

	// Relationships
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"-"`
	Project      *Project      `gorm:"foreignKey:ProjectID" json:"-"`
}

func (PurchaseRequest) TableName() string {
	return "purchase_requests"
}

// SpentTotal is the final total once purchased, otherwise the estimate.
func (r *PurchaseRequest) SpentTotal() float64 {
	if r.FinalTotal != nil {
		return *r.FinalTotal
	}
	return r.EstimatedTotal
}

type LineItem struct {
	Base
	PurchaseRequestID uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	Name              string    `gorm:"not null" json:"name"`
	Quantity          float64   `gorm:"not null" json:"quantity"`
	Unit              string    `json:"unit"`
	EstimatedUnitCost float64   `gorm:"not null" json:"estimated_unit_cost"`
	SortOrder         int       `gorm:"not null;default:0" json:"-"`
}

func (LineItem) TableName() string {
	return "line_items"
}

// Subtotal is quantity times unit cost, rounded to cents.
func (li LineItem) Subtotal() float64 {
	return RoundCents(li.Quantity * li.EstimatedUnitCost)
}

// SumLineItems totals the subtotals of items.
func SumLineItems(items []LineItem) float64 {
	var total float64
	for _, li := range items {
		total += li.Subtotal()
	}
	return RoundCents(total)
}

// ValidAmount reports whether v is a finite, non-negative money amount.
func ValidAmount(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

// RoundCents rounds an amount to two decimal places.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
