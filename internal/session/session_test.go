package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habitbot/internal/config"
	"github.com/julianstephens/habitbot/internal/constants"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, ttl)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestStoresRoundTrip(t *testing.T) {
	redisStore, _ := newRedisStore(t, time.Hour)
	stores := map[string]Store{
		"memory": NewMemoryStore(time.Hour),
		"redis":  redisStore,
	}

	states := []State{
		AwaitingHabitName(),
		AwaitingPeriod("Drink water"),
		AwaitingMarkChoice([]int64{1, 2, 3}),
		AwaitingAdviceChoice([]int64{4}),
		AwaitingDeleteChoice([]int64{5, 6}),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := store.Get(ctx, 42)
			require.NoError(t, err)
			assert.Equal(t, Idle(), got, "unknown user should be idle")

			for _, st := range states {
				require.NoError(t, store.Set(ctx, 42, st))
				got, err := store.Get(ctx, 42)
				require.NoError(t, err)
				assert.Equal(t, st, got)
			}

			other, err := store.Get(ctx, 7)
			require.NoError(t, err)
			assert.Equal(t, StepIdle, other.Step, "state must be per user")

			require.NoError(t, store.Clear(ctx, 42))
			got, err = store.Get(ctx, 42)
			require.NoError(t, err)
			assert.Equal(t, Idle(), got)
		})
	}
}

func TestSetIdleClears(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Hour)

	require.NoError(t, store.Set(ctx, 42, AwaitingHabitName()))
	assert.True(t, mr.Exists(store.key(42)))

	require.NoError(t, store.Set(ctx, 42, Idle()))
	assert.False(t, mr.Exists(store.key(42)))
}

func TestRedisStoreTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Minute)

	require.NoError(t, store.Set(ctx, 42, AwaitingPeriod("Read")))
	assert.Equal(t, time.Minute, mr.TTL(store.key(42)))

	mr.FastForward(2 * time.Minute)

	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, Idle(), got)
}

func TestMemoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Minute)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, 42, AwaitingHabitName()))

	now = now.Add(30 * time.Second)
	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingHabitName, got.Step)

	now = now.Add(time.Minute)
	got, err = store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, StepIdle, got.Step)
}

func TestRedisStoreCorruptValue(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Hour)

	require.NoError(t, mr.Set(store.key(42), "{not json"))
	_, err := store.Get(ctx, 42)
	assert.Error(t, err)
}

func TestOffered(t *testing.T) {
	st := AwaitingMarkChoice([]int64{3, 5})
	assert.True(t, st.Offered(5))
	assert.False(t, st.Offered(4))
	assert.False(t, Idle().Offered(3))
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	memory, err := New(ctx, config.SessionConfig{Backend: constants.SessionMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, memory)

	redisBacked, err := New(ctx, config.SessionConfig{Backend: constants.SessionRedis, RedisAddr: mr.Addr(), TTL: time.Hour})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, redisBacked)
	_ = redisBacked.(*RedisStore).Close()

	_, err = New(ctx, config.SessionConfig{Backend: constants.SessionRedis, RedisAddr: "127.0.0.1:1"})
	assert.Error(t, err)

	_, err = New(ctx, config.SessionConfig{Backend: "memcached"})
	assert.Error(t, err)
}
