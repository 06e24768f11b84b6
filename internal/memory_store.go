package internal

import (
	"context"
	"sync"
)

// MemoryStore 單機版房間儲存
//
// 房間在建立時一次配置好（1..n），之後不增不減。
// 每個房間有自己的鎖，不同房間的操作互不阻塞。
type MemoryStore struct {
	rooms []*memoryRoom
}

type memoryRoom struct {
	mu    sync.Mutex
	state *RoomState
}

// NewMemoryStore 建立 n 個空房間
func NewMemoryStore(n int) *MemoryStore {
	s := &MemoryStore{rooms: make([]*memoryRoom, n)}
	for i := range s.rooms {
		s.rooms[i] = &memoryRoom{state: NewRoomState(i + 1)}
	}
	return s
}

func (s *MemoryStore) room(roomID int) (*memoryRoom, error) {
	if !validRoom(roomID, len(s.rooms)) {
		return nil, ErrRoomNotFound
	}
	return s.rooms[roomID-1], nil
}

// Update 在房間鎖內對副本執行 fn，成功才替換
func (s *MemoryStore) Update(ctx context.Context, roomID int, fn UpdateFunc) (*RoomState, error) {
	r, err := s.room(roomID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.state.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	r.state = next
	return next.Clone(), nil
}

// Get 讀取快照
func (s *MemoryStore) Get(_ context.Context, roomID int) (*RoomState, error) {
	r, err := s.room(roomID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone(), nil
}

// List 逐一讀取所有房間
func (s *MemoryStore) List(ctx context.Context) ([]*RoomState, error) {
	out := make([]*RoomState, 0, len(s.rooms))
	for i := range s.rooms {
		st, err := s.Get(ctx, i+1)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// Members 房間內的 session ID
func (s *MemoryStore) Members(ctx context.Context, roomID int) ([]string, error) {
	st, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return st.Seats, nil
}

// Close 無資源需要釋放
func (s *MemoryStore) Close() error {
	return nil
}
