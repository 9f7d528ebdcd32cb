package metrics_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-editions/internal/domain"
	"github.com/feral-file/ff-editions/internal/metrics"
)

func TestPurchaseResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{fmt.Errorf("%w: edition 1", domain.ErrSoldOut), "sold_out"},
		{fmt.Errorf("%w: edition 1", domain.ErrNotStarted), "not_started"},
		{domain.ErrEnded, "ended"},
		{domain.ErrInvalidSignature, "invalid_signature"},
		{domain.ErrTicketAlreadyUsed, "ticket_used"},
		{domain.ErrInsufficientPayment, "insufficient_payment"},
		{domain.ErrNotFound, "not_found"},
		{errors.New("disk full"), "error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, metrics.PurchaseResult(tt.err))
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObservePurchase(nil)
	m.ObservePurchase(nil)
	m.ObservePurchase(domain.ErrSoldOut)
	m.EditionCreated()
	m.EventPublished()
	m.PublishFailed()
	m.RelayPolled(4)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["ff_editions_purchases_total"])
	assert.True(t, names["ff_editions_tokens_minted_total"])
	assert.True(t, names["ff_editions_outbox_pending_events"])

	count, err := testutil.GatherAndCount(reg, "ff_editions_purchases_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var nilMetrics *metrics.Metrics
	assert.NotPanics(t, func() {
		nilMetrics.ObservePurchase(nil)
		nilMetrics.RelayPolled(1)
	})
}
