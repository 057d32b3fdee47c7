package flags

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestUniqueFlags asserts that all flag names are unique, to avoid accidental conflicts between the many flags.
func TestUniqueFlags(t *testing.T) {
	seenCLI := make(map[string]struct{})
	for _, flag := range Flags {
		for _, name := range flag.Names() {
			if _, ok := seenCLI[name]; ok {
				t.Errorf("duplicate flag %s", name)
				continue
			}
			seenCLI[name] = struct{}{}
		}
	}
}

// TestUniqueEnvVars asserts that all flag env vars are unique, to avoid accidental conflicts between the many flags.
func TestUniqueEnvVars(t *testing.T) {
	seen := make(map[string]struct{})
	for _, envVar := range EnvVars() {
		if _, ok := seen[envVar]; ok {
			t.Errorf("duplicate env var %s", envVar)
		}
		seen[envVar] = struct{}{}
	}
}

func TestCorrectEnvVarPrefix(t *testing.T) {
	for _, envVar := range EnvVars() {
		require.True(t, strings.HasPrefix(envVar, EnvVarPrefix+"_"), "%s is missing the prefix", envVar)
	}
}

func TestHasEnvVar(t *testing.T) {
	for _, flag := range Flags {
		ef, ok := flag.(interface{ GetEnvVars() []string })
		require.True(t, ok, "flag %v has no env vars", flag.Names())
		require.NotEmpty(t, ef.GetEnvVars(), "flag %v has no env vars", flag.Names())
	}
}

func TestConfigFromCLI(t *testing.T) {
	app := cli.NewApp()
	app.Flags = Flags
	var checked bool
	app.Action = func(ctx *cli.Context) error {
		require.NoError(t, CheckRequired(ctx))
		cfg := ConfigFromCLI(ctx, "v1.2.3")
		require.Equal(t, "v1.2.3", cfg.Version)
		require.Equal(t, 9000, cfg.RPC.ListenPort)
		require.True(t, cfg.RPC.EnableAdmin)
		require.True(t, cfg.MetricsConfig.Enabled)
		require.NoError(t, cfg.Check())
		checked = true
		return nil
	}
	args := []string{"claim-faucet", "--rpc.port=9000", "--rpc.enable-admin", "--metrics.enabled", "--config=faucets.yaml"}
	require.NoError(t, app.Run(args))
	require.True(t, checked)
	require.True(t, slices.Contains(EnvVars(), "CLAIM_FAUCET_CONFIG"))
}
