package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mantlenetworkio/claim-faucet/config"
	fconf "github.com/mantlenetworkio/claim-faucet/faucet/backend/config"
	opservice "github.com/mantlenetworkio/claim-faucet/service"
	oplog "github.com/mantlenetworkio/claim-faucet/service/log"
	opmetrics "github.com/mantlenetworkio/claim-faucet/service/metrics"
	oprpc "github.com/mantlenetworkio/claim-faucet/service/rpc"
)

const EnvVarPrefix = "CLAIM_FAUCET"

func prefixEnvVars(name string) []string {
	return opservice.PrefixEnvVar(EnvVarPrefix, name)
}

var (
	ConfigFlag = &cli.StringFlag{
		Name:      "config",
		Usage:     "Faucets configuration file path",
		EnvVars:   prefixEnvVars("CONFIG"),
		Value:     config.DefaultConfigYaml,
		TakesFile: true,
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	ConfigFlag,
}

func init() {
	optionalFlags = append(optionalFlags, oprpc.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(Flags, requiredFlags...)
	Flags = append(Flags, optionalFlags...)
}

// Flags contains the list of configuration options available to the binary.
var Flags []cli.Flag

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}

// EnvVars lists the env vars of all flags.
func EnvVars() []string {
	var out []string
	for _, f := range Flags {
		if ef, ok := f.(interface{ GetEnvVars() []string }); ok {
			out = append(out, ef.GetEnvVars()...)
		}
	}
	return out
}

func ConfigFromCLI(ctx *cli.Context, version string) *config.Config {
	return &config.Config{
		Version:       version,
		LogConfig:     oplog.ReadCLIConfig(ctx),
		MetricsConfig: opmetrics.ReadCLIConfig(ctx),
		RPC:           oprpc.ReadCLIConfig(ctx),
		Faucets:       &fconf.YamlLoader{Path: ctx.String(ConfigFlag.Name)},
	}
}
