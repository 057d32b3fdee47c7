package config

import (
	"errors"

	fconf "github.com/mantlenetworkio/claim-faucet/faucet/backend/config"
	oplog "github.com/mantlenetworkio/claim-faucet/service/log"
	opmetrics "github.com/mantlenetworkio/claim-faucet/service/metrics"
	oprpc "github.com/mantlenetworkio/claim-faucet/service/rpc"
)

const (
	DefaultConfigYaml = "config.yaml"
)

var ErrMissingFaucets = errors.New("missing faucets config loader")

type Config struct {
	Version string

	LogConfig     oplog.CLIConfig
	MetricsConfig opmetrics.CLIConfig
	RPC           oprpc.CLIConfig

	Faucets fconf.Loader
}

func (c *Config) Check() error {
	var result error
	result = errors.Join(result, c.LogConfig.Check())
	result = errors.Join(result, c.MetricsConfig.Check())
	result = errors.Join(result, c.RPC.Check())
	if c.Faucets == nil {
		result = errors.Join(result, ErrMissingFaucets)
	}
	return result
}

func DefaultCLIConfig() *Config {
	return &Config{
		Version:       "dev",
		LogConfig:     oplog.DefaultCLIConfig(),
		MetricsConfig: opmetrics.DefaultCLIConfig(),
		RPC:           oprpc.DefaultCLIConfig(),
		Faucets:       &fconf.YamlLoader{Path: DefaultConfigYaml},
	}
}
