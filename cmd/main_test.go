package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/mantlenetworkio/claim-faucet/config"
	"github.com/mantlenetworkio/claim-faucet/faucet"
	ftypes "github.com/mantlenetworkio/claim-faucet/faucet/backend/types"
	"github.com/mantlenetworkio/claim-faucet/service/cliapp"
)

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, io.Discard, []string{"claim-faucet", "--version"}, fromConfig)
	require.NoError(t, err)
	require.Contains(t, out.String(), "v0.0.0")
}

func TestInvalidConfigFile(t *testing.T) {
	err := run(context.Background(), io.Discard, io.Discard, []string{
		"claim-faucet",
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"--rpc.port", "0",
	}, fromConfig)
	require.ErrorContains(t, err, "failed to read config")
}

func TestServeAndClient(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ownerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	userKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	cfgPath := filepath.Join(t.TempDir(), "faucets.yaml")
	cfgData := fmt.Sprintf(`default: daily
faucets:
  daily:
    claim_amount: "250"
    claim_interval: 24h
    owner: "%s"
    ledger:
      initial_balance: "1000"
`, crypto.PubkeyToAddress(ownerKey.PublicKey))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgData), 0644))

	started := make(chan *faucet.Service, 1)
	fn := func(ctx context.Context, cfg *config.Config, logger log.Logger) (cliapp.Lifecycle, error) {
		srv, err := faucet.FromConfig(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		started <- srv
		return srv, nil
	}
	serveCtx, stopServe := context.WithCancel(ctx)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- run(serveCtx, io.Discard, io.Discard, []string{
			"claim-faucet",
			"--config", cfgPath,
			"--rpc.addr", "127.0.0.1",
			"--rpc.port", "0",
		}, fn)
	}()

	var srv *faucet.Service
	select {
	case srv = <-started:
	case err := <-serveErr:
		t.Fatalf("service exited early: %v", err)
	case <-ctx.Done():
		t.Fatal("timed out waiting for service")
	}
	require.Eventually(t, func() bool {
		return srv.RPC() != ""
	}, 10*time.Second, 10*time.Millisecond)
	endpoint := srv.FaucetEndpoint("daily")

	client := func(args ...string) (string, error) {
		var out bytes.Buffer
		err := run(ctx, &out, io.Discard, append([]string{"claim-faucet"}, args...), fn)
		return strings.TrimSpace(out.String()), err
	}

	out, err := client("info", "--rpc", endpoint)
	require.NoError(t, err)
	var info ftypes.FaucetInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	require.Equal(t, ftypes.FaucetID("daily"), info.ID)
	require.Equal(t, uint64(24*60*60), info.ClaimInterval)

	out, err = client("claim", "--rpc", endpoint, "--private-key", hexutil.Encode(crypto.FromECDSA(userKey)))
	require.NoError(t, err)
	var ev ftypes.ClaimedEvent
	require.NoError(t, json.Unmarshal([]byte(out), &ev))
	require.Equal(t, crypto.PubkeyToAddress(userKey.PublicKey), ev.Identity)

	_, err = client("claim", "--rpc", endpoint, "--private-key", hexutil.Encode(crypto.FromECDSA(userKey)))
	require.ErrorIs(t, err, ftypes.ErrAlreadyClaimed)

	_, err = client("claim", "--rpc", endpoint, "--private-key", "0xnothex")
	require.ErrorContains(t, err, "invalid private key")

	out, err = client("balance", "--rpc", endpoint)
	require.NoError(t, err)
	require.Equal(t, "750", out)

	_, err = client("drain", "--rpc", endpoint, "--private-key", hexutil.Encode(crypto.FromECDSA(userKey)))
	require.ErrorIs(t, err, ftypes.ErrUnauthorized)

	out, err = client("drain", "--rpc", endpoint, "--private-key", hexutil.Encode(crypto.FromECDSA(ownerKey)))
	require.NoError(t, err)
	require.Equal(t, "750", out)

	stopServe()
	select {
	case err := <-serveErr:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("timed out waiting for service shutdown")
	}
	require.True(t, srv.Stopped())
}
