package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/koopa0/system-design/14-battleship/internal/battle"
)

// RedisStoreConfig Redis 儲存設定
type RedisStoreConfig struct {
	Rooms      int           // 房間數量（1..Rooms）
	KeyPrefix  string        // 預設 "battleship:"
	TTL        time.Duration // 每次寫入都會刷新
	MaxRetries int           // WATCH 衝突的重試上限
}

// RedisStore 多機共享的房間儲存
//
// 每個房間一個 key：{prefix}room:{id}，值為整份 RoomState JSON。
// key 不存在（從未寫入或 TTL 過期）視為空房間。
//
// 讀改寫流程：
//
//	WATCH key → GET → fn(state) → MULTI SET key EX ttl EXEC
//
// EXEC 時若 key 已被別人改過會得到 TxFailedErr，重新讀取再跑一次 fn。
type RedisStore struct {
	client *redis.Client
	config RedisStoreConfig
	logger *slog.Logger
}

// NewRedisStore 建立 Redis 儲存
func NewRedisStore(client *redis.Client, config RedisStoreConfig, logger *slog.Logger) *RedisStore {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "battleship:"
	}
	if config.TTL <= 0 {
		config.TTL = 6 * time.Hour
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 10
	}
	return &RedisStore{client: client, config: config, logger: logger}
}

func (s *RedisStore) key(roomID int) string {
	return s.config.KeyPrefix + "room:" + strconv.Itoa(roomID)
}

// decode 解析房間；nil 代表 key 不存在
func (s *RedisStore) decode(roomID int, data []byte) (*RoomState, error) {
	if data == nil {
		return NewRoomState(roomID), nil
	}
	var st RoomState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode room %d: %w", roomID, err)
	}
	if st.Seats == nil {
		st.Seats = []string{}
	}
	if st.Boards == nil {
		st.Boards = make(map[string]*battle.Board)
	}
	st.ID = roomID
	return &st, nil
}

// Update 以 WATCH/MULTI 執行讀改寫
func (s *RedisStore) Update(ctx context.Context, roomID int, fn UpdateFunc) (*RoomState, error) {
	if !validRoom(roomID, s.config.Rooms) {
		return nil, ErrRoomNotFound
	}
	key := s.key(roomID)

	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		var committed *RoomState

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
				data = nil
			case err != nil:
				return fmt.Errorf("get room %d: %w", roomID, err)
			}

			st, err := s.decode(roomID, data)
			if err != nil {
				return err
			}
			if err := fn(st); err != nil {
				return err
			}

			payload, err := json.Marshal(st)
			if err != nil {
				return fmt.Errorf("encode room %d: %w", roomID, err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, s.config.TTL)
				return nil
			})
			if err != nil {
				return err
			}
			committed = st
			return nil
		}, key)

		if err == nil {
			return committed, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug("room update conflict, retrying",
				"room_id", roomID,
				"attempt", attempt+1)
			continue
		}
		return nil, err
	}

	return nil, ErrConflict
}

// Get 讀取快照
func (s *RedisStore) Get(ctx context.Context, roomID int) (*RoomState, error) {
	if !validRoom(roomID, s.config.Rooms) {
		return nil, ErrRoomNotFound
	}

	data, err := s.client.Get(ctx, s.key(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewRoomState(roomID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get room %d: %w", roomID, err)
	}
	return s.decode(roomID, data)
}

// List 一次 MGET 讀取所有房間
func (s *RedisStore) List(ctx context.Context) ([]*RoomState, error) {
	keys := make([]string, s.config.Rooms)
	for i := range keys {
		keys[i] = s.key(i + 1)
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	out := make([]*RoomState, 0, len(vals))
	for i, v := range vals {
		var data []byte
		if str, ok := v.(string); ok {
			data = []byte(str)
		}
		st, err := s.decode(i+1, data)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// Members 房間內的 session ID
func (s *RedisStore) Members(ctx context.Context, roomID int) ([]string, error) {
	st, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return st.Seats, nil
}

// Reset 刪除所有房間 key（測試與維運用）
func (s *RedisStore) Reset(ctx context.Context) error {
	keys := make([]string, s.config.Rooms)
	for i := range keys {
		keys[i] = s.key(i + 1)
	}
	return s.client.Del(ctx, keys...).Err()
}

// Close 關閉 Redis 連線
func (s *RedisStore) Close() error {
	return s.client.Close()
}
