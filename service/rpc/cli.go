package rpc

import (
	"errors"
	"math"

	"github.com/urfave/cli/v2"

	opservice "github.com/mantlenetworkio/claim-faucet/service"
)

const (
	ListenAddrFlagName  = "rpc.addr"
	PortFlagName        = "rpc.port"
	EnableAdminFlagName = "rpc.enable-admin"
	JWTSecretFlagName   = "rpc.jwt-secret"
)

var ErrInvalidPort = errors.New("invalid RPC port")

func CLIFlags(envPrefix string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    ListenAddrFlagName,
			Usage:   "RPC listening address",
			EnvVars: opservice.PrefixEnvVar(envPrefix, "RPC_ADDR"),
			Value:   "0.0.0.0",
		},
		&cli.IntFlag{
			Name:    PortFlagName,
			Usage:   "RPC listening port",
			EnvVars: opservice.PrefixEnvVar(envPrefix, "RPC_PORT"),
			Value:   8545,
		},
		&cli.BoolFlag{
			Name:    EnableAdminFlagName,
			Usage:   "Enable the admin API",
			EnvVars: opservice.PrefixEnvVar(envPrefix, "RPC_ENABLE_ADMIN"),
		},
		&cli.StringFlag{
			Name: JWTSecretFlagName,
			Usage: "Path to a JWT secret (32 bytes hex) that authenticates the admin API. " +
				"A secret is generated at the path if the file does not exist.",
			EnvVars:   opservice.PrefixEnvVar(envPrefix, "RPC_JWT_SECRET"),
			TakesFile: true,
		},
	}
}

type CLIConfig struct {
	ListenAddr  string
	ListenPort  int
	EnableAdmin bool
	// JWTSecretPath is optional. Without it the admin API is served unauthenticated.
	JWTSecretPath string
}

func DefaultCLIConfig() CLIConfig {
	return CLIConfig{
		ListenAddr: "0.0.0.0",
		ListenPort: 8545,
	}
}

func (c CLIConfig) Check() error {
	if c.ListenPort < 0 || c.ListenPort > math.MaxUint16 {
		return ErrInvalidPort
	}
	return nil
}

func ReadCLIConfig(ctx *cli.Context) CLIConfig {
	return CLIConfig{
		ListenAddr:    ctx.String(ListenAddrFlagName),
		ListenPort:    ctx.Int(PortFlagName),
		EnableAdmin:   ctx.Bool(EnableAdminFlagName),
		JWTSecretPath: ctx.String(JWTSecretFlagName),
	}
}
