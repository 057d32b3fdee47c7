package faucet

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/log"

	"github.com/mantlenetworkio/claim-faucet/config"
	"github.com/mantlenetworkio/claim-faucet/flags"
	opservice "github.com/mantlenetworkio/claim-faucet/service"
	"github.com/mantlenetworkio/claim-faucet/service/cliapp"
	oplog "github.com/mantlenetworkio/claim-faucet/service/log"
)

// MainFn turns the service config into a running service.
type MainFn func(ctx context.Context, cfg *config.Config, logger log.Logger) (cliapp.Lifecycle, error)

// Main is the entrypoint into the faucet service.
func Main(version string, fn MainFn) cliapp.LifecycleAction {
	return func(cliCtx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
		if err := flags.CheckRequired(cliCtx); err != nil {
			return nil, err
		}
		cfg := flags.ConfigFromCLI(cliCtx, version)
		if err := cfg.Check(); err != nil {
			return nil, fmt.Errorf("invalid CLI flags: %w", err)
		}

		l := oplog.NewLogger(cliCtx.App.Writer, cfg.LogConfig)
		oplog.SetGlobalLogHandler(l.Handler())
		for _, name := range opservice.UnknownEnvVars(flags.EnvVarPrefix, flags.EnvVars(), os.Environ()) {
			l.Warn("Unknown env var", "name", name)
		}

		l.Info("Initializing faucet service", "version", version)
		return fn(cliCtx.Context, cfg, l)
	}
}
