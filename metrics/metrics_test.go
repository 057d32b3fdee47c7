package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	ftypes "github.com/mantlenetworkio/claim-faucet/faucet/backend/types"
	opmetrics "github.com/mantlenetworkio/claim-faucet/service/metrics"
	"github.com/mantlenetworkio/claim-faucet/service/tokens"
)

func TestFaucetMetrics(t *testing.T) {
	m := NewMetrics("")

	version := "v3.4.5"
	m.RecordInfo(version)
	m.RecordUp()

	faucetA := ftypes.FaucetID("faucetA")
	faucetB := ftypes.FaucetID("faucetB")

	onDone := m.RecordClaim(faucetA, tokens.FromUint64(1000))
	onDone(nil)
	onDone = m.RecordClaim(faucetA, tokens.FromUint64(1000))
	onDone(nil)
	onDone = m.RecordClaim(faucetA, tokens.FromUint64(1000))
	onDone(fmt.Errorf("claim failed: %w", ftypes.ErrAlreadyClaimed))
	onDone = m.RecordClaim(faucetB, tokens.FromUint64(7))
	onDone(errors.New("test err"))
	onDone = m.RecordClaim(faucetB, tokens.FromUint64(7))
	onDone(fmt.Errorf("claim transfer pending: %w", ftypes.ErrTransferPending))

	m.RecordDrain(faucetA, tokens.FromUint64(500), nil)
	m.RecordDrain(faucetA, tokens.Zero, ftypes.ErrUnauthorized)
	m.RecordBalance(faucetA, tokens.FromUint64(42))

	c := opmetrics.NewMetricChecker(t, m.Registry())

	prefix := Namespace + "_default_"
	labelsA := map[string]string{"faucet": faucetA.String()}

	record := c.FindByName(prefix + "claims_total").FindByLabels(map[string]string{"faucet": "faucetA", "result": "success"})
	require.Equal(t, 2.0, record.Counter.GetValue())
	record = c.FindByName(prefix + "claims_total").FindByLabels(map[string]string{"faucet": "faucetA", "result": "already_claimed"})
	require.Equal(t, 1.0, record.Counter.GetValue())
	record = c.FindByName(prefix + "claims_total").FindByLabels(map[string]string{"faucet": "faucetB", "result": "failed"})
	require.Equal(t, 1.0, record.Counter.GetValue())
	record = c.FindByName(prefix + "claims_total").FindByLabels(map[string]string{"faucet": "faucetB", "result": "pending"})
	require.Equal(t, 1.0, record.Counter.GetValue())

	record = c.FindByName(prefix + "claimed_tokens_total").FindByLabels(labelsA)
	require.Equal(t, 2000.0, record.Counter.GetValue())

	record = c.FindByName(prefix + "claim_duration_seconds").FindByLabels(labelsA)
	require.Equal(t, uint64(3), record.Histogram.GetSampleCount())

	record = c.FindByName(prefix + "drains_total").FindByLabels(map[string]string{"faucet": "faucetA", "result": "success"})
	require.Equal(t, 1.0, record.Counter.GetValue())
	record = c.FindByName(prefix + "drains_total").FindByLabels(map[string]string{"faucet": "faucetA", "result": "unauthorized"})
	require.Equal(t, 1.0, record.Counter.GetValue())
	record = c.FindByName(prefix + "drained_tokens_total").FindByLabels(labelsA)
	require.Equal(t, 500.0, record.Counter.GetValue())

	record = c.FindByName(prefix + "balance").FindByLabels(labelsA)
	require.Equal(t, 42.0, record.Gauge.GetValue())

	record = c.FindByName(prefix + "up").FindByLabels(nil)
	require.Equal(t, 1.0, record.Gauge.GetValue())

	record = c.FindByName(prefix + "info").FindByLabels(map[string]string{"version": version})
	require.Equal(t, 1.0, record.Gauge.GetValue())
}

func TestNoopMetrics(t *testing.T) {
	m := &NoopMetrics{}
	m.RecordInfo("1234")
	m.RecordUp()
	onDone := m.RecordClaim("faucetA", tokens.FromUint64(1))
	onDone(errors.New("test err"))
	m.RecordDrain("faucetA", tokens.Zero, nil)
	m.RecordBalance("faucetA", tokens.Zero)
}
