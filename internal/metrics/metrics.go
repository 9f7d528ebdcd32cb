package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/feral-file/ff-editions/internal/domain"
)

const namespace = "ff_editions"

// Metrics holds the collectors of one process
type Metrics struct {
	purchases        *prometheus.CounterVec
	tokensMinted     prometheus.Counter
	editionsCreated  prometheus.Counter
	eventsPublished  prometheus.Counter
	publishFailures  prometheus.Counter
	outboxPending    prometheus.Gauge
	relayBatchLength prometheus.Histogram
}

// New registers the collectors with reg. A nil reg uses a private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		purchases: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_total",
			Help:      "purchase attempts by outcome",
		}, []string{"result"}),
		tokensMinted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_minted_total",
			Help:      "number of tokens minted by sales",
		}),
		editionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "editions_created_total",
			Help:      "number of editions created",
		}),
		eventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "number of outbox events delivered to the broker",
		}),
		publishFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "number of failed outbox publish attempts",
		}),
		outboxPending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_pending_events",
			Help:      "unpublished events seen by the last relay poll",
		}),
		relayBatchLength: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relay_batch_size",
			Help:      "events fetched per relay poll",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}
}

// ObservePurchase counts a purchase attempt under a label derived from its error
func (m *Metrics) ObservePurchase(err error) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(PurchaseResult(err)).Inc()
	if err == nil {
		m.tokensMinted.Inc()
	}
}

// EditionCreated counts a new edition
func (m *Metrics) EditionCreated() {
	if m == nil {
		return
	}
	m.editionsCreated.Inc()
}

// EventPublished counts a delivered outbox event
func (m *Metrics) EventPublished() {
	if m == nil {
		return
	}
	m.eventsPublished.Inc()
}

// PublishFailed counts a failed outbox publish attempt
func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}

// RelayPolled records the size of one relay batch
func (m *Metrics) RelayPolled(pending int) {
	if m == nil {
		return
	}
	m.outboxPending.Set(float64(pending))
	m.relayBatchLength.Observe(float64(pending))
}

// PurchaseResult maps a purchase error to its metric label
func PurchaseResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrNotStarted):
		return "not_started"
	case errors.Is(err, domain.ErrEnded):
		return "ended"
	case errors.Is(err, domain.ErrSoldOut):
		return "sold_out"
	case errors.Is(err, domain.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, domain.ErrTicketAlreadyUsed):
		return "ticket_used"
	case errors.Is(err, domain.ErrInsufficientPayment):
		return "insufficient_payment"
	default:
		return "error"
	}
}
