package internal_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/koopa0/system-design/14-battleship/internal"
	"github.com/koopa0/system-design/14-battleship/internal/testutils"
	"github.com/stretchr/testify/require"
)

// recorder 記錄送到某條連線的事件
type recorder struct {
	mu     sync.Mutex
	events []map[string]any
	closed bool
}

func (r *recorder) Send(msg []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	var ev map[string]any
	if err := json.Unmarshal(msg, &ev); err != nil {
		panic(err)
	}
	r.events = append(r.events, ev)
	return true
}

func (r *recorder) all() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]map[string]any, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) types() []string {
	var out []string
	for _, ev := range r.all() {
		out = append(out, ev["type"].(string))
	}
	return out
}

// byType 指定型別的事件（依收到順序）
func (r *recorder) byType(typ string) []map[string]any {
	var out []map[string]any
	for _, ev := range r.all() {
		if ev["type"] == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) last(typ string) map[string]any {
	evs := r.byType(typ)
	if len(evs) == 0 {
		return nil
	}
	return evs[len(evs)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func (r *recorder) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// testEnv 單機版的完整組裝（記憶體儲存、無 Bus）
type testEnv struct {
	ctx     context.Context
	store   internal.Store
	dir     *internal.Directory
	router  *internal.Router
	manager *internal.Manager
}

// fixedClock 測試用固定時間
var fixedClock = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T, opts ...internal.Option) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, internal.NewMemoryStore(5), opts...)
}

func newTestEnvWithStore(t *testing.T, store internal.Store, opts ...internal.Option) *testEnv {
	t.Helper()

	logger := testutils.DiscardLogger()
	dir := internal.NewDirectory()
	router := internal.NewRouter(dir, store, nil, logger)
	require.NoError(t, router.Start())

	// 預設第一位入座的玩家先手
	defaults := []internal.Option{
		internal.WithRandom(func(int) int { return 0 }),
		internal.WithClock(func() time.Time { return fixedClock }),
	}

	return &testEnv{
		ctx:     context.Background(),
		store:   store,
		dir:     dir,
		router:  router,
		manager: internal.NewManager(store, dir, router, internal.DefaultManagerConfig(), logger, append(defaults, opts...)...),
	}
}

// connect 建立一條假連線
func (e *testEnv) connect(t *testing.T) (string, *recorder) {
	t.Helper()
	rec := &recorder{}
	sess := e.manager.Connect(e.ctx, rec)
	return sess.ID, rec
}

// join 連線並加入房間
func (e *testEnv) join(t *testing.T, roomID int) (string, *recorder) {
	t.Helper()
	id, rec := e.connect(t)
	require.NoError(t, e.manager.JoinRoom(e.ctx, id, roomID))
	return id, rec
}

// room 讀取房間快照
func (e *testEnv) room(t *testing.T, roomID int) *internal.RoomState {
	t.Helper()
	st, err := e.manager.Room(e.ctx, roomID)
	require.NoError(t, err)
	return st
}

// startGame 兩位玩家入座房間 1 並提交艦隊；a 先手
func (e *testEnv) startGame(t *testing.T) (a string, ra *recorder, b string, rb *recorder) {
	t.Helper()
	a, ra = e.join(t, 1)
	b, rb = e.join(t, 1)
	require.NoError(t, e.manager.PlaceShips(e.ctx, a, testutils.StandardFleet()))
	require.NoError(t, e.manager.PlaceShips(e.ctx, b, testutils.StandardFleet()))
	require.Equal(t, internal.PhaseInProgress, e.room(t, 1).Phase)
	ra.reset()
	rb.reset()
	return a, ra, b, rb
}
