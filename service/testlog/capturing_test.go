package testlog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/log"
)

func TestCaptureLogger(t *testing.T) {
	logger, logs := CaptureLogger(t, log.LevelInfo)
	child := logger.New("faucet", "daily")
	child.Info("Claimed", "amount", 1000)
	logger.Debug("filtered")

	recs := logs.FindLogs(log.LevelInfo, "Claimed")
	require.Len(t, recs, 1)
	v, ok := recs[0].AttrValue("faucet")
	require.True(t, ok)
	require.Equal(t, "daily", v.String())
	v, ok = recs[0].AttrValue("amount")
	require.True(t, ok)
	require.Equal(t, int64(1000), v.Int64())

	require.Empty(t, logs.FindLogs(log.LevelDebug, "filtered"))
	logs.Clear()
	require.Empty(t, logs.FindLogs(log.LevelInfo, "Claimed"))
}
