package types

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mantlenetworkio/claim-faucet/service/tokens"
)

const maxIDLength = 100

var ErrInvalidID = errors.New("invalid ID")

// FaucetID represents a unique faucet.
// A service may host multiple faucets, each with its own ledger and claim records.
type FaucetID string

func (id FaucetID) String() string {
	return string(id)
}

func (id FaucetID) MarshalText() ([]byte, error) {
	if len(id) > maxIDLength || len(id) == 0 {
		return nil, ErrInvalidID
	}
	return []byte(id), nil
}

func (id *FaucetID) UnmarshalText(data []byte) error {
	if len(data) > maxIDLength || len(data) == 0 {
		return ErrInvalidID
	}
	*id = FaucetID(data)
	return nil
}

// ClaimRequest is a request by Identity to receive the faucet claim amount.
// RpcUser is the peer the request came from, used for rate-limiting.
type ClaimRequest struct {
	RpcUser  *rpc.PeerInfo
	Identity common.Address
}

// DrainRequest is a request by Caller to move all faucet funds to the owner.
type DrainRequest struct {
	RpcUser *rpc.PeerInfo
	Caller  common.Address
}

// ClaimedEvent is the notification emitted for every successful claim.
type ClaimedEvent struct {
	// Index is the position of the event in the faucet's claim journal.
	Index     uint64         `json:"index"`
	Faucet    FaucetID       `json:"faucet"`
	Identity  common.Address `json:"identity"`
	Amount    tokens.Amount  `json:"amount"`
	Timestamp uint64         `json:"timestamp"`
}

// FaucetInfo describes the immutable settings of a faucet.
type FaucetInfo struct {
	ID            FaucetID       `json:"id"`
	ClaimAmount   tokens.Amount  `json:"claimAmount"`
	ClaimInterval uint64         `json:"claimInterval"`
	Owner         common.Address `json:"owner"`
	Account       common.Address `json:"account"`
}

// Authorizer decides if an identity may drain a faucet.
type Authorizer interface {
	IsOwner(id common.Address) bool
}

// OwnerAuthorizer authorizes a single owner identity.
type OwnerAuthorizer struct {
	Owner common.Address
}

var _ Authorizer = OwnerAuthorizer{}

func (a OwnerAuthorizer) IsOwner(id common.Address) bool {
	return id == a.Owner
}

// FaucetStatus is the admin view of a faucet.
type FaucetStatus struct {
	Info    FaucetInfo `json:"info"`
	Enabled bool       `json:"enabled"`
}
