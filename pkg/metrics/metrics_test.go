package metrics_test

import (
	"testing"

	"github.com/cmclain4200/approcure/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordDenial(t *testing.T) {
	before := testutil.ToFloat64(metrics.AuthzDenials.WithLabelValues("proposal.approve"))

	metrics.RecordDenial("proposal.approve")
	metrics.RecordDenial("proposal.approve")

	after := testutil.ToFloat64(metrics.AuthzDenials.WithLabelValues("proposal.approve"))
	assert.Equal(t, before+2, after)
}

func TestRecordTransitionAndClaim(t *testing.T) {
	metrics.RecordTransition("approved", "ok")
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.RequestTransitions.WithLabelValues("approved", "ok")), 1.0)

	metrics.RecordClaim("exhausted")
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.AccessCodeClaims.WithLabelValues("exhausted")), 1.0)
}
