package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	ftypes "github.com/mantlenetworkio/claim-faucet/faucet/backend/types"
	"github.com/mantlenetworkio/claim-faucet/service/tokens"
)

// Ledger is the fungible token ledger a faucet disburses from.
// The faucet never changes the ledger accounting directly, it only requests transfers
// out of its own account.
type Ledger interface {
	// Account is the ledger account that holds the faucet funds.
	Account() common.Address
	BalanceOf(ctx context.Context, account common.Address) (tokens.Amount, error)
	// Transfer moves amount from Account to the given account.
	// A transfer either completes fully, or fails without moving any funds,
	// unless the error is a *PendingTransferError: the transfer was submitted,
	// and funds may still move.
	Transfer(ctx context.Context, to common.Address, amount tokens.Amount) error
	Close()
}

// InsufficientBalanceError is returned by a transfer that exceeds the available balance.
type InsufficientBalanceError struct {
	Available tokens.Amount
	Requested tokens.Amount
}

var _ error = (*InsufficientBalanceError)(nil)

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: requested %s, available %s", e.Requested, e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ftypes.ErrInsufficientBalance
}

func (e *InsufficientBalanceError) ErrorCode() int {
	return ftypes.InsufficientBalanceErrCode
}

// PendingTransferError is returned by a transfer that was submitted to the ledger,
// but of which the outcome could not be awaited.
type PendingTransferError struct {
	// Ref identifies the submitted transfer, e.g. a transaction hash.
	Ref string
	Err error
}

var _ error = (*PendingTransferError)(nil)

func (e *PendingTransferError) Error() string {
	return fmt.Sprintf("transfer %s submitted, outcome unknown: %v", e.Ref, e.Err)
}

func (e *PendingTransferError) Unwrap() []error {
	return []error{ftypes.ErrTransferPending, e.Err}
}

func (e *PendingTransferError) ErrorCode() int {
	return ftypes.TransferPendingErrCode
}
