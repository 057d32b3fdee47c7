package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// JSON-RPC error codes, so clients can tell the failures apart.
const (
	AlreadyClaimedErrCode      = -38001
	UnauthorizedErrCode        = -38002
	InsufficientBalanceErrCode = -38003
	FaucetDisabledErrCode      = -38004
	RateLimitedErrCode         = -38005
	InvalidSignatureErrCode    = -38006
	TransferPendingErrCode     = -38007
)

var (
	ErrAlreadyClaimed      = errors.New("already claimed")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrFaucetDisabled      = errors.New("faucet is disabled")
	ErrRateLimited         = errors.New("rate limited")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrTransferPending     = errors.New("transfer pending")
)

// AlreadyClaimedError is returned when an identity claims before its cooldown interval elapsed.
type AlreadyClaimedError struct {
	Identity      common.Address
	LastClaimedAt uint64
	NextClaimAt   uint64
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("%s already claimed at %d, next claim possible at %d", e.Identity, e.LastClaimedAt, e.NextClaimAt)
}

func (e *AlreadyClaimedError) Unwrap() error {
	return ErrAlreadyClaimed
}

func (e *AlreadyClaimedError) ErrorCode() int {
	return AlreadyClaimedErrCode
}

// UnauthorizedError is returned when a non-owner attempts an owner-only operation.
type UnauthorizedError struct {
	Caller common.Address
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("%s is not the faucet owner", e.Caller)
}

func (e *UnauthorizedError) Unwrap() error {
	return ErrUnauthorized
}

func (e *UnauthorizedError) ErrorCode() int {
	return UnauthorizedErrCode
}

// codedError attaches a JSON-RPC error code to a sentinel error.
type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string  { return e.err.Error() }
func (e *codedError) Unwrap() error  { return e.err }
func (e *codedError) ErrorCode() int { return e.code }

// RPCError wraps err so the JSON-RPC server reports the code of the first recognized
// error in its chain. Unrecognized errors are returned as-is.
func RPCError(err error) error {
	if err == nil {
		return nil
	}
	var coded interface{ ErrorCode() int }
	if errors.As(err, &coded) {
		return &codedError{err: err, code: coded.ErrorCode()}
	}
	for sentinel, code := range sentinelCodes {
		if errors.Is(err, sentinel) {
			return &codedError{err: err, code: code}
		}
	}
	return err
}

var sentinelCodes = map[error]int{
	ErrAlreadyClaimed:      AlreadyClaimedErrCode,
	ErrUnauthorized:        UnauthorizedErrCode,
	ErrInsufficientBalance: InsufficientBalanceErrCode,
	ErrFaucetDisabled:      FaucetDisabledErrCode,
	ErrRateLimited:         RateLimitedErrCode,
	ErrInvalidSignature:    InvalidSignatureErrCode,
	ErrTransferPending:     TransferPendingErrCode,
}

// ErrorFromCode maps a JSON-RPC error code back to the sentinel error, if known.
func ErrorFromCode(code int) (error, bool) {
	for sentinel, c := range sentinelCodes {
		if c == code {
			return sentinel, true
		}
	}
	return nil, false
}
