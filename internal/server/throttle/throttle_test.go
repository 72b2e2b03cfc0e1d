package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestThrottle(t *testing.T) (*RedisThrottle, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisThrottle(client), mini
}

func TestRedisThrottle_Cooldown(t *testing.T) {
	ctx := context.Background()
	th, mini := newTestThrottle(t)
	key := Key("UID-001")

	ok, err := th.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = th.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire inside the cooldown")

	mini.FastForward(61 * time.Second)
	ok, err = th.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "cooldown elapsed")
}

func TestRedisThrottle_Release(t *testing.T) {
	ctx := context.Background()
	th, mini := newTestThrottle(t)
	key := Key("UID-002")

	_, err := th.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, mini.Exists("otp:cooldown:UID-002"))

	require.NoError(t, th.Release(ctx, key))
	ok, err := th.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisThrottle_Unavailable(t *testing.T) {
	th, mini := newTestThrottle(t)
	mini.Close()

	_, err := th.Acquire(context.Background(), Key("x"), time.Minute)
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var th Throttle = Nop{}
	for range 3 {
		ok, err := th.Acquire(context.Background(), "k", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.NoError(t, th.Release(context.Background(), "k"))
}
