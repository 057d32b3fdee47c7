package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/mantlenetworkio/claim-faucet/config"
	"github.com/mantlenetworkio/claim-faucet/faucet"
	"github.com/mantlenetworkio/claim-faucet/flags"
	opservice "github.com/mantlenetworkio/claim-faucet/service"
	"github.com/mantlenetworkio/claim-faucet/service/cliapp"
	oplog "github.com/mantlenetworkio/claim-faucet/service/log"
	"github.com/mantlenetworkio/claim-faucet/service/sources"
)

var (
	Version   = "v0.0.0"
	GitCommit = ""
	GitDate   = ""
)

var (
	EndpointFlag = &cli.StringFlag{
		Name:    "rpc",
		Usage:   "Faucet RPC endpoint, e.g. http://localhost:8545/faucet/daily",
		EnvVars: opservice.PrefixEnvVar(flags.EnvVarPrefix, "CLIENT_RPC"),
		Value:   "http://localhost:8545",
	}
	PrivateKeyFlag = &cli.StringFlag{
		Name:    "private-key",
		Usage:   "Hex-encoded private key of the claiming or draining identity",
		EnvVars: opservice.PrefixEnvVar(flags.EnvVarPrefix, "CLIENT_PRIVATE_KEY"),
	}
)

func main() {
	ctx := cliapp.WithSignalInterrupt(context.Background())
	err := run(ctx, os.Stdout, os.Stderr, os.Args, fromConfig)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(ctx context.Context, w io.Writer, ew io.Writer, args []string, fn faucet.MainFn) error {
	oplog.SetupDefaults()

	app := cli.NewApp()
	app.Writer = w
	app.ErrWriter = ew
	app.Flags = flags.Flags
	app.Version = opservice.FormatVersion(Version, GitCommit, GitDate, "")
	app.Name = "claim-faucet"
	app.Usage = "claim-faucet hosts faucets that hand out a fixed token amount per identity per interval."
	app.Description = "Faucet service with per-identity claim cooldowns.\n" +
		" Try the faucet RPC on /faucet/{FAUCET_NAME_HERE}, or the default faucet on the root route."
	app.Action = cliapp.LifecycleCmd(faucet.Main(app.Version, fn))
	app.Commands = []*cli.Command{
		{
			Name:   "claim",
			Usage:  "Claim from a faucet with the identity of the private key",
			Flags:  []cli.Flag{EndpointFlag, PrivateKeyFlag},
			Action: claimAction,
		},
		{
			Name:   "drain",
			Usage:  "Move all faucet funds to the owner, signed by the owner private key",
			Flags:  []cli.Flag{EndpointFlag, PrivateKeyFlag},
			Action: drainAction,
		},
		{
			Name:   "balance",
			Usage:  "Print the faucet balance",
			Flags:  []cli.Flag{EndpointFlag},
			Action: balanceAction,
		},
		{
			Name:   "info",
			Usage:  "Print the faucet settings",
			Flags:  []cli.Flag{EndpointFlag},
			Action: infoAction,
		},
	}
	return app.RunContext(ctx, args)
}

func fromConfig(ctx context.Context, cfg *config.Config, logger log.Logger) (cliapp.Lifecycle, error) {
	return faucet.FromConfig(ctx, cfg, logger)
}

func dial(cliCtx *cli.Context) (*sources.FaucetClient, error) {
	return sources.DialFaucet(cliCtx.Context, cliCtx.String(EndpointFlag.Name))
}

func writeJSON(cliCtx *cli.Context, v any) error {
	enc := json.NewEncoder(cliCtx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func claimAction(cliCtx *cli.Context) error {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cliCtx.String(PrivateKeyFlag.Name), "0x"))
	if err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}
	cl, err := dial(cliCtx)
	if err != nil {
		return err
	}
	defer cl.Close()
	ev, err := cl.Claim(cliCtx.Context, key)
	if err != nil {
		return fmt.Errorf("claim failed: %w", err)
	}
	return writeJSON(cliCtx, ev)
}

func drainAction(cliCtx *cli.Context) error {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cliCtx.String(PrivateKeyFlag.Name), "0x"))
	if err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}
	cl, err := dial(cliCtx)
	if err != nil {
		return err
	}
	defer cl.Close()
	amount, err := cl.Drain(cliCtx.Context, key)
	if err != nil {
		return fmt.Errorf("drain failed: %w", err)
	}
	_, err = fmt.Fprintln(cliCtx.App.Writer, amount.Decimal())
	return err
}

func balanceAction(cliCtx *cli.Context) error {
	cl, err := dial(cliCtx)
	if err != nil {
		return err
	}
	defer cl.Close()
	bal, err := cl.Balance(cliCtx.Context)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}
	_, err = fmt.Fprintln(cliCtx.App.Writer, bal.Decimal())
	return err
}

func infoAction(cliCtx *cli.Context) error {
	cl, err := dial(cliCtx)
	if err != nil {
		return err
	}
	defer cl.Close()
	info, err := cl.Info(cliCtx.Context)
	if err != nil {
		return fmt.Errorf("failed to get faucet info: %w", err)
	}
	return writeJSON(cliCtx, info)
}
