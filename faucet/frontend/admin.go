package frontend

import (
	ftypes "github.com/mantlenetworkio/claim-faucet/faucet/backend/types"
	oprpc "github.com/mantlenetworkio/claim-faucet/service/rpc"
)

type AdminBackend interface {
	EnableFaucet(id ftypes.FaucetID) error
	DisableFaucet(id ftypes.FaucetID) error
	Faucets() map[ftypes.FaucetID]ftypes.FaucetStatus
	Default() ftypes.FaucetID
}

// AdminFrontend serves the "admin" RPC namespace.
type AdminFrontend struct {
	*oprpc.CommonAdminAPI
	b AdminBackend
}

func NewAdminFrontend(common *oprpc.CommonAdminAPI, b AdminBackend) *AdminFrontend {
	return &AdminFrontend{CommonAdminAPI: common, b: b}
}

func (a *AdminFrontend) EnableFaucet(id ftypes.FaucetID) error {
	return a.b.EnableFaucet(id)
}

func (a *AdminFrontend) DisableFaucet(id ftypes.FaucetID) error {
	return a.b.DisableFaucet(id)
}

func (a *AdminFrontend) Faucets() map[ftypes.FaucetID]ftypes.FaucetStatus {
	return a.b.Faucets()
}

func (a *AdminFrontend) DefaultFaucet() ftypes.FaucetID {
	return a.b.Default()
}
