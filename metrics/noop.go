package metrics

import (
	ftypes "github.com/mantlenetworkio/claim-faucet/faucet/backend/types"
	"github.com/mantlenetworkio/claim-faucet/service/tokens"
)

type NoopMetrics struct{}

func (n NoopMetrics) RecordInfo(version string) {}

func (n NoopMetrics) RecordUp() {}

func (n NoopMetrics) RecordClaim(faucet ftypes.FaucetID, amount tokens.Amount) (onDone func(err error)) {
	return func(err error) {}
}

func (n NoopMetrics) RecordDrain(faucet ftypes.FaucetID, amount tokens.Amount, err error) {}

func (n NoopMetrics) RecordBalance(faucet ftypes.FaucetID, balance tokens.Amount) {}

var _ Metricer = NoopMetrics{}
