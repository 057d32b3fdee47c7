package metrics

import (
	ftypes "github.com/mantlenetworkio/claim-faucet/faucet/backend/types"
	"github.com/mantlenetworkio/claim-faucet/service/tokens"
)

type Metricer interface {
	RecordInfo(version string)
	RecordUp()

	// RecordClaim starts timing a claim, onDone records its outcome.
	RecordClaim(faucet ftypes.FaucetID, amount tokens.Amount) (onDone func(err error))
	RecordDrain(faucet ftypes.FaucetID, amount tokens.Amount, err error)
	RecordBalance(faucet ftypes.FaucetID, balance tokens.Amount)
}
