// Package budget folds a project's requests into spending totals. Nothing is
// cached: every snapshot is recomputed from the current request rows.
package budget

import (
	"math"

	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/google/uuid"
)

const (
	atRiskPct     = 80
	overBudgetPct = 100
)

type Snapshot struct {
	ProjectID      uuid.UUID `json:"project_id"`
	ProjectName    string    `json:"project_name"`
	MonthlyBudget  float64   `json:"monthly_budget"`
	ApprovedTotal  float64   `json:"approved_total"`
	PurchasedTotal float64   `json:"purchased_total"`
	PendingTotal   float64   `json:"pending_total"`
	Remaining      float64   `json:"remaining"`
}

// Impact is advisory: it informs an approver and never blocks a transition.
type Impact struct {
	CurrentPct int  `json:"current_pct"`
	AfterPct   int  `json:"after_pct"`
	AtRisk     bool `json:"at_risk"`
	OverBudget bool `json:"over_budget"`
}

// NewSnapshot totals requests against project. Approved counts approved and
// purchased estimates; purchased counts final totals, falling back to the
// estimate; pending counts pending estimates. Requests on other projects are
// ignored.
func NewSnapshot(project *models.Project, requests []models.PurchaseRequest) Snapshot {
	s := Snapshot{
		ProjectID:     project.ID,
		ProjectName:   project.Name,
		MonthlyBudget: project.MonthlyBudget,
	}

	for i := range requests {
		r := &requests[i]
		if r.ProjectID != project.ID {
			continue
		}
		switch r.Status {
		case models.RequestStatusApproved:
			s.ApprovedTotal += r.EstimatedTotal
		case models.RequestStatusPurchased:
			s.ApprovedTotal += r.EstimatedTotal
			s.PurchasedTotal += r.SpentTotal()
		case models.RequestStatusPending:
			s.PendingTotal += r.EstimatedTotal
		}
	}

	s.ApprovedTotal = models.RoundCents(s.ApprovedTotal)
	s.PurchasedTotal = models.RoundCents(s.PurchasedTotal)
	s.PendingTotal = models.RoundCents(s.PendingTotal)
	s.Remaining = models.RoundCents(s.MonthlyBudget - s.ApprovedTotal)
	return s
}

// Impact reports how approving amount would move the project's committed
// percentage. Both percentages are zero for a zero budget.
func (s Snapshot) Impact(amount float64) Impact {
	current := s.UsedPct()
	after := percent(s.ApprovedTotal+amount, s.MonthlyBudget)
	return Impact{
		CurrentPct: current,
		AfterPct:   after,
		AtRisk:     after >= atRiskPct && after < overBudgetPct,
		OverBudget: after >= overBudgetPct,
	}
}

// UsedPct is the committed share of the budget.
func (s Snapshot) UsedPct() int {
	return percent(s.ApprovedTotal, s.MonthlyBudget)
}

func percent(v, budget float64) int {
	if budget == 0 {
		return 0
	}
	return int(math.Round(v / budget * 100))
}
