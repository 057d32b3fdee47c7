package rpc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/log"

	"github.com/mantlenetworkio/claim-faucet/service/testlog"
)

func TestObtainJWTSecret(t *testing.T) {
	logger := testlog.Logger(t, log.LevelInfo)
	dir := t.TempDir()
	path := filepath.Join(dir, "jwt.hex")

	_, err := ObtainJWTSecret(logger, path, false)
	require.ErrorContains(t, err, "does not exist")

	secret, err := ObtainJWTSecret(logger, path, true)
	require.NoError(t, err)
	require.NotEqual(t, [32]byte{}, secret)

	again, err := ObtainJWTSecret(logger, path, false)
	require.NoError(t, err)
	require.Equal(t, secret, again)

	require.NoError(t, os.WriteFile(path, []byte("0x1234"), 0o600))
	_, err = ObtainJWTSecret(logger, path, true)
	require.ErrorContains(t, err, "invalid jwt secret")

	_, err = ObtainJWTSecret(logger, " ", true)
	require.ErrorContains(t, err, "empty")
}
