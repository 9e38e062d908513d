package models_test

import (
	"math"
	"testing"
	"time"

	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumLineItems(t *testing.T) {
	items := []models.LineItem{
		{Name: "2x4 stud", Quantity: 120, EstimatedUnitCost: 4.37},
		{Name: "Drywall screws", Quantity: 3, EstimatedUnitCost: 12.333},
	}

	assert.Equal(t, 524.4, items[0].Subtotal())
	assert.Equal(t, 37.0, items[1].Subtotal())
	assert.Equal(t, 561.4, models.SumLineItems(items))
	assert.Equal(t, 0.0, models.SumLineItems(nil))
}

func TestAccessCode_Redeemable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		code models.AccessCode
		want bool
	}{
		{"active unused", models.AccessCode{Status: models.AccessCodeActive, MaxUses: 1}, true},
		{"future expiry", models.AccessCode{Status: models.AccessCodeActive, MaxUses: 2, UsesCount: 1, ExpiresAt: &future}, true},
		{"exhausted", models.AccessCode{Status: models.AccessCodeActive, MaxUses: 1, UsesCount: 1}, false},
		{"expired", models.AccessCode{Status: models.AccessCodeActive, MaxUses: 5, ExpiresAt: &past}, false},
		{"expires exactly now", models.AccessCode{Status: models.AccessCodeActive, MaxUses: 5, ExpiresAt: &now}, false},
		{"disabled", models.AccessCode{Status: models.AccessCodeDisabled, MaxUses: 5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.Redeemable(now))
		})
	}
}

func TestStringList(t *testing.T) {
	v, err := models.StringList{"receipt-1.pdf", "receipt-2.pdf"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["receipt-1.pdf","receipt-2.pdf"]`, v)

	v, err = models.StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var l models.StringList
	require.NoError(t, l.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, models.StringList{"a", "b"}, l)

	require.NoError(t, l.Scan(nil))
	assert.Nil(t, l)

	assert.Error(t, l.Scan(42))
}

func TestRequestStatus_Terminal(t *testing.T) {
	assert.True(t, models.RequestStatusRejected.Terminal())
	assert.True(t, models.RequestStatusPurchased.Terminal())
	assert.False(t, models.RequestStatusPending.Terminal())
	assert.False(t, models.RequestStatusApproved.Terminal())
	assert.False(t, models.RequestStatusDraft.Terminal())
}

func TestPurchaseRequest_SpentTotal(t *testing.T) {
	r := models.PurchaseRequest{EstimatedTotal: 1000}
	assert.Equal(t, 1000.0, r.SpentTotal())

	final := 1200.0
	r.FinalTotal = &final
	assert.Equal(t, 1200.0, r.SpentTotal())
}

func TestValidAmount(t *testing.T) {
	assert.True(t, models.ValidAmount(0))
	assert.True(t, models.ValidAmount(243.17))
	assert.False(t, models.ValidAmount(-0.01))
	assert.False(t, models.ValidAmount(math.NaN()))
	assert.False(t, models.ValidAmount(math.Inf(1)))
	assert.False(t, models.ValidAmount(math.Inf(-1)))
}
