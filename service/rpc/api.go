package rpc

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	oplog "github.com/mantlenetworkio/claim-faucet/service/log"
)

// CommonAdminAPI serves the admin methods every service exposes.
type CommonAdminAPI struct {
	log log.Logger
}

func NewCommonAdminAPI(log log.Logger) *CommonAdminAPI {
	return &CommonAdminAPI{log: log}
}

func (n *CommonAdminAPI) SetLogLevel(ctx context.Context, lvlStr string) error {
	lvl, err := oplog.LevelFromString(lvlStr)
	if err != nil {
		return err
	}
	h := n.log.Handler()
	lvlSetter, ok := h.(oplog.LvlSetter)
	if !ok {
		return fmt.Errorf("log handler type %T cannot change log level", h)
	}
	lvlSetter.SetLogLevel(lvl)
	n.log.Info("Changed log level", "level", lvlStr)
	return nil
}
