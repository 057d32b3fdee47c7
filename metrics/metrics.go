package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	ftypes "github.com/mantlenetworkio/claim-faucet/faucet/backend/types"
	opmetrics "github.com/mantlenetworkio/claim-faucet/service/metrics"
	"github.com/mantlenetworkio/claim-faucet/service/tokens"
)

const Namespace = "claim_faucet"

type Metrics struct {
	ns       string
	registry *prometheus.Registry
	factory  opmetrics.Factory

	claims        *prometheus.CounterVec
	claimedTokens *prometheus.CounterVec
	claimDuration *prometheus.HistogramVec

	drains        *prometheus.CounterVec
	drainedTokens *prometheus.CounterVec

	balance *prometheus.GaugeVec

	info prometheus.GaugeVec
	up   prometheus.Gauge
}

var _ Metricer = (*Metrics)(nil)

func NewMetrics(procName string) *Metrics {
	return newMetrics(procName, opmetrics.NewRegistry())
}

func newMetrics(procName string, registry *prometheus.Registry) *Metrics {
	if procName == "" {
		procName = "default"
	}
	ns := Namespace + "_" + procName

	factory := opmetrics.With(registry)
	return &Metrics{
		ns:       ns,
		registry: registry,
		factory:  factory,

		info: *factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "info",
			Help:      "Pseudo-metric tracking version and config info",
		}, []string{
			"version",
		}),
		up: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "up",
			Help:      "1 if the faucet service has finished starting up",
		}),

		claims: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "claims_total",
			Help:      "Count of claim attempts, by result",
		}, []string{"faucet", "result"}),
		claimedTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "claimed_tokens_total",
			Help:      "Total of tokens paid out by successful claims",
		}, []string{"faucet"}),
		claimDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "claim_duration_seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			Help:      "Duration it takes to process a claim, including the ledger transfer",
		}, []string{"faucet"}),

		drains: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "drains_total",
			Help:      "Count of drain attempts, by result",
		}, []string{"faucet", "result"}),
		drainedTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "drained_tokens_total",
			Help:      "Total of tokens moved to the owner by drains",
		}, []string{"faucet"}),

		balance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "balance",
			Help:      "Last observed ledger balance of the faucet account",
		}, []string{"faucet"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordInfo sets a pseudo-metric that contains versioning and config info.
func (m *Metrics) RecordInfo(version string) {
	m.info.WithLabelValues(version).Set(1)
}

// RecordUp sets the up metric to 1.
func (m *Metrics) RecordUp() {
	m.up.Set(1)
}

func (m *Metrics) RecordClaim(faucet ftypes.FaucetID, amount tokens.Amount) (onDone func(err error)) {
	timer := prometheus.NewTimer(m.claimDuration.WithLabelValues(faucet.String()))
	return func(err error) {
		timer.ObserveDuration()
		m.claims.WithLabelValues(faucet.String(), resultLabel(err)).Inc()
		if err == nil {
			m.claimedTokens.WithLabelValues(faucet.String()).Add(amount.Float())
		}
	}
}

func (m *Metrics) RecordDrain(faucet ftypes.FaucetID, amount tokens.Amount, err error) {
	m.drains.WithLabelValues(faucet.String(), resultLabel(err)).Inc()
	if err == nil {
		m.drainedTokens.WithLabelValues(faucet.String()).Add(amount.Float())
	}
}

func (m *Metrics) RecordBalance(faucet ftypes.FaucetID, balance tokens.Amount) {
	m.balance.WithLabelValues(faucet.String()).Set(balance.Float())
}

// resultLabel keeps the result label cardinality bounded to the known error kinds.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ftypes.ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ftypes.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ftypes.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ftypes.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ftypes.ErrFaucetDisabled):
		return "disabled"
	case errors.Is(err, ftypes.ErrTransferPending):
		return "pending"
	default:
		return "failed"
	}
}
