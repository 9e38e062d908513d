package dto

import (
	"strings"

	"github.com/cmclain4200/approcure/internal/api/validation"
	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/internal/requests"
	"github.com/google/uuid"
)

type LineItemRequest struct {
	Name              string  `json:"name"`
	Quantity          float64 `json:"quantity"`
	Unit              string  `json:"unit"`
	EstimatedUnitCost float64 `json:"estimated_unit_cost"`
}

type CreateRequestRequest struct {
	ProjectID       uuid.UUID         `json:"project_id"`
	Vendor          string            `json:"vendor"`
	VendorID        *uuid.UUID        `json:"vendor_id,omitempty"`
	Category        string            `json:"category"`
	CostCodeID      *uuid.UUID        `json:"cost_code_id,omitempty"`
	LineItems       []LineItemRequest `json:"line_items"`
	Urgency         string            `json:"urgency,omitempty"`
	NeedBy          string            `json:"need_by"`
	DeliveryMethod  string            `json:"delivery_method"`
	DeliveryAddress string            `json:"delivery_address,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	Attachments     []string          `json:"attachments,omitempty"`
	Submit          bool              `json:"submit"`
}

// Validate checks shape only. Category, need-by and line item rules are
// enforced by the request manager.
func (r CreateRequestRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.ProjectID == uuid.Nil {
		errors["project_id"] = "Project is required"
	}
	if strings.TrimSpace(r.Vendor) == "" {
		errors["vendor"] = "Vendor is required"
	} else if len(r.Vendor) > validation.MaxNameLength {
		errors["vendor"] = "Vendor is too long"
	}
	if len(r.LineItems) == 0 {
		errors["line_items"] = "At least one line item is required"
	}
	if len(r.Notes) > validation.MaxTextLength {
		errors["notes"] = "Notes are too long"
	}

	return errors
}

func (r CreateRequestRequest) Input() requests.CreateInput {
	items := make([]requests.LineItemInput, len(r.LineItems))
	for i, li := range r.LineItems {
		items[i] = requests.LineItemInput{
			Name:              validation.CleanText(li.Name, validation.MaxNameLength),
			Quantity:          li.Quantity,
			Unit:              validation.CleanText(li.Unit, validation.MaxNameLength),
			EstimatedUnitCost: li.EstimatedUnitCost,
		}
	}
	return requests.CreateInput{
		ProjectID:       r.ProjectID,
		Vendor:          validation.CleanText(r.Vendor, validation.MaxNameLength),
		VendorID:        r.VendorID,
		Category:        models.RequestCategory(r.Category),
		CostCodeID:      r.CostCodeID,
		LineItems:       items,
		Urgency:         models.Urgency(r.Urgency),
		NeedBy:          models.NeedBy(r.NeedBy),
		DeliveryMethod:  models.DeliveryMethod(r.DeliveryMethod),
		DeliveryAddress: validation.CleanText(r.DeliveryAddress, validation.MaxTextLength),
		Notes:           validation.CleanText(r.Notes, validation.MaxTextLength),
		Attachments:     r.Attachments,
		Submit:          r.Submit,
	}
}

type ApproveRequest struct {
	CostCodeID *uuid.UUID `json:"cost_code_id,omitempty"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type PurchaseRequest struct {
	FinalTotal *float64 `json:"final_total"`
	ReceiptRef string   `json:"receipt_ref,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

func (r PurchaseRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.FinalTotal == nil {
		errors["final_total"] = "Final total is required"
	} else if !validation.IsValidAmount(*r.FinalTotal) {
		errors["final_total"] = "Final total must be a non-negative amount"
	}
	return errors
}

type CodingRequest struct {
	CostCodeID      *uuid.UUID `json:"cost_code_id,omitempty"`
	VendorID        *uuid.UUID `json:"vendor_id,omitempty"`
	POReference     *string    `json:"po_reference,omitempty"`
	AccountingNotes *string    `json:"accounting_notes,omitempty"`
}

func (r CodingRequest) Input() requests.CodingInput {
	in := requests.CodingInput{CostCodeID: r.CostCodeID, VendorID: r.VendorID}
	if r.POReference != nil {
		ref := validation.CleanText(*r.POReference, validation.MaxNameLength)
		in.POReference = &ref
	}
	if r.AccountingNotes != nil {
		notes := validation.CleanText(*r.AccountingNotes, validation.MaxTextLength)
		in.AccountingNotes = &notes
	}
	return in
}

type VendorCountResponse struct {
	Vendor string `json:"vendor"`
	Count  int64  `json:"count"`
	Days   int    `json:"days"`
}
