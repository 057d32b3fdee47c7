package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeterministicClock(t *testing.T) {
	c := NewDeterministicClock(time.Unix(0, 0))
	require.Equal(t, int64(0), c.Now().Unix())
	c.AdvanceTime(100 * time.Second)
	require.Equal(t, int64(100), c.Now().Unix())
	c.SetTime(time.Unix(86400, 0))
	require.Equal(t, int64(86400), c.Now().Unix())
}

func TestSystemClock(t *testing.T) {
	before := time.Now()
	now := SystemClock.Now()
	require.False(t, now.Before(before))
}
