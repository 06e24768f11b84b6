package internal_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/koopa0/system-design/14-battleship/internal"
	"github.com/koopa0/system-design/14-battleship/internal/battle"
	"github.com/koopa0/system-design/14-battleship/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactory 每個子測試拿到一個全新的 5 房間儲存
type storeFactory func(t *testing.T) internal.Store

func memoryStores(t *testing.T) internal.Store {
	return internal.NewMemoryStore(5)
}

func redisStores(client func() *internal.RedisStore) storeFactory {
	return func(t *testing.T) internal.Store {
		s := client()
		require.NoError(t, s.Reset(context.Background()))
		return s
	}
}

// TestMemoryStore 測試記憶體儲存
func TestMemoryStore(t *testing.T) {
	runStoreContract(t, memoryStores)
}

// TestRedisStore 測試 Redis 儲存（需要 Docker）
func TestRedisStore(t *testing.T) {
	client := testutils.SetupRedis(t)
	logger := testutils.DiscardLogger()

	store := internal.NewRedisStore(client, internal.RedisStoreConfig{
		Rooms:      5,
		KeyPrefix:  "test:",
		TTL:        time.Minute,
		MaxRetries: 100,
	}, logger)
	t.Cleanup(func() { _ = store.Close() })

	runStoreContract(t, redisStores(func() *internal.RedisStore { return store }))

	t.Run("ttl is refreshed on write", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, store.Reset(ctx))

		_, err := store.Update(ctx, 1, func(st *internal.RoomState) error {
			st.Seats = append(st.Seats, "alice")
			st.Phase = internal.PhaseWaiting
			return nil
		})
		require.NoError(t, err)

		ttl, err := client.TTL(ctx, "test:room:1").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 50*time.Second)
		assert.LessOrEqual(t, ttl, time.Minute)
	})

	t.Run("corrupt value is reported", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, store.Reset(ctx))
		require.NoError(t, client.Set(ctx, "test:room:2", "{not json", 0).Err())

		_, err := store.Get(ctx, 2)
		assert.Error(t, err)

		_, err = store.List(ctx)
		assert.Error(t, err)
	})

	t.Run("game state survives a round trip", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, store.Reset(ctx))

		board, err := battle.ValidateFleet(testutils.StandardFleet())
		require.NoError(t, err)
		_, err = board.Fire(0, 0)
		require.NoError(t, err)

		_, err = store.Update(ctx, 3, func(st *internal.RoomState) error {
			st.Seats = []string{"alice", "bob"}
			st.Phase = internal.PhaseInProgress
			st.ShipsPlaced = 2
			st.Turn = "alice"
			st.Boards["alice"] = battle.NewBoard()
			st.Boards["bob"] = board
			return nil
		})
		require.NoError(t, err)

		got, err := store.Get(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Turn)
		assert.Equal(t, battle.CellHit, got.Boards["bob"].At(0, 0))
		assert.Equal(t, board.Ships, got.Boards["bob"].Ships)
		assert.True(t, got.Boards["alice"].IsClear())
	})

	t.Run("full game", func(t *testing.T) {
		require.NoError(t, store.Reset(context.Background()))
		env := newTestEnvWithStore(t, store)

		a, ra, b, _ := env.startGame(t)
		require.NoError(t, env.manager.Shoot(env.ctx, a, 5, 5))
		assert.Equal(t, b, env.room(t, 1).Turn)

		for _, p := range testutils.FleetTargets() {
			require.NoError(t, env.manager.Shoot(env.ctx, b, p.X, p.Y))
		}

		assert.Equal(t, b, ra.last(internal.EventGameOver)["winner"])
		st := env.room(t, 1)
		assert.Equal(t, internal.PhaseWaiting, st.Phase)
		assert.Equal(t, []string{a, b}, st.Seats)
	})
}

// runStoreContract 兩種儲存共用的行為
func runStoreContract(t *testing.T, newStore storeFactory) {
	t.Run("unknown room", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for _, id := range []int{0, -1, 6} {
			_, err := store.Get(ctx, id)
			assert.ErrorIs(t, err, internal.ErrRoomNotFound, "get %d", id)

			_, err = store.Update(ctx, id, func(*internal.RoomState) error { return nil })
			assert.ErrorIs(t, err, internal.ErrRoomNotFound, "update %d", id)
		}
	})

	t.Run("rooms start empty", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		rooms, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, rooms, 5)
		for i, st := range rooms {
			assert.Equal(t, i+1, st.ID)
			assert.Equal(t, internal.PhaseEmpty, st.Phase)
			assert.Empty(t, st.Seats)
		}
	})

	t.Run("update commits on success", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		committed, err := store.Update(ctx, 2, func(st *internal.RoomState) error {
			st.Seats = append(st.Seats, "alice")
			st.Phase = internal.PhaseWaiting
			st.Boards["alice"] = battle.NewBoard()
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, committed.Seats)

		got, err := store.Get(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, internal.PhaseWaiting, got.Phase)
		assert.Equal(t, []string{"alice"}, got.Seats)

		members, err := store.Members(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, members)

		rooms, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, rooms[1].Summary().PlayersCount)
	})

	t.Run("update discards on error", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		boom := errors.New("boom")

		_, err := store.Update(ctx, 1, func(st *internal.RoomState) error {
			st.Seats = append(st.Seats, "alice")
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := store.Get(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, got.Seats)
	})

	t.Run("snapshots are isolated", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		got, err := store.Get(ctx, 1)
		require.NoError(t, err)
		got.Seats = append(got.Seats, "mallory")

		again, err := store.Get(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, again.Seats)
	})

	t.Run("concurrent updates are serialized", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		const writers = 20
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Update(ctx, 4, func(st *internal.RoomState) error {
					st.ShipsPlaced++
					return nil
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
		got, err := store.Get(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, writers, got.ShipsPlaced)
	})
}
