package requests

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cmclain4200/approcure/internal/apperr"
	"github.com/cmclain4200/approcure/internal/database/models"
)

var validCategories = map[models.RequestCategory]bool{
	models.CategoryMaterials:       true,
	models.CategoryTools:           true,
	models.CategoryEquipmentRental: true,
	models.CategorySubcontract:     true,
	models.CategoryOther:           true,
}

var validNeedBy = map[models.NeedBy]bool{
	models.NeedByToday:    true,
	models.NeedByTomorrow: true,
	models.NeedByThisWeek: true,
	models.NeedByNextWeek: true,
}

// validateCreate checks in, fills defaults and returns the line items to store.
func validateCreate(in *CreateInput) ([]models.LineItem, error) {
	if strings.TrimSpace(in.Vendor) == "" {
		return nil, apperr.New(apperr.Validation, "vendor is required")
	}
	if !validCategories[in.Category] {
		return nil, apperr.Newf(apperr.Validation, "unknown category %q", in.Category)
	}
	if !validNeedBy[in.NeedBy] {
		return nil, apperr.Newf(apperr.Validation, "unknown need-by %q", in.NeedBy)
	}

	switch in.Urgency {
	case "":
		in.Urgency = models.UrgencyNormal
	case models.UrgencyNormal, models.UrgencyUrgent:
	default:
		return nil, apperr.Newf(apperr.Validation, "unknown urgency %q", in.Urgency)
	}

	switch in.DeliveryMethod {
	case models.DeliveryPickup:
	case models.DeliveryDelivery:
		if strings.TrimSpace(in.DeliveryAddress) == "" {
			return nil, apperr.New(apperr.Validation, "delivery requires an address")
		}
	default:
		return nil, apperr.Newf(apperr.Validation, "unknown delivery method %q", in.DeliveryMethod)
	}

	if len(in.LineItems) == 0 {
		return nil, apperr.New(apperr.Validation, "a request needs at least one line item")
	}

	items := make([]models.LineItem, 0, len(in.LineItems))
	for i, li := range in.LineItems {
		name := strings.TrimSpace(li.Name)
		switch {
		case name == "":
			return nil, apperr.Newf(apperr.Validation, "line item %d: name is required", i+1)
		case !(li.Quantity > 0) || math.IsInf(li.Quantity, 0):
			return nil, apperr.Newf(apperr.Validation, "line item %d: quantity must be positive", i+1)
		case !(li.EstimatedUnitCost >= 0) || math.IsInf(li.EstimatedUnitCost, 0):
			return nil, apperr.Newf(apperr.Validation, "line item %d: unit cost cannot be negative", i+1)
		}
		items = append(items, models.LineItem{
			Name:              name,
			Quantity:          li.Quantity,
			Unit:              strings.TrimSpace(li.Unit),
			EstimatedUnitCost: models.RoundCents(li.EstimatedUnitCost),
			SortOrder:         i,
		})
	}
	return items, nil
}

// formatMoney renders an amount as US dollars with thousands separators,
// e.g. $1,250.00.
func formatMoney(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	s := strconv.FormatFloat(models.RoundCents(amount), 'f', 2, 64)
	whole, frac := s[:len(s)-3], s[len(s)-2:]

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s$%s.%s", sign, b.String(), frac)
}
