package internal_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/koopa0/system-design/14-battleship/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDecodeInbound 測試客戶端訊息解析
func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  bool
		validate func(t *testing.T, msg *internal.Inbound)
	}{
		{
			name:  "numeric room id",
			input: `{"type":"join_room","roomId":3}`,
			validate: func(t *testing.T, msg *internal.Inbound) {
				assert.Equal(t, internal.MsgJoinRoom, msg.Type)
				assert.EqualValues(t, 3, msg.RoomID)
			},
		},
		{
			name:  "string room id",
			input: `{"type":"join_room","roomId":" 4 "}`,
			validate: func(t *testing.T, msg *internal.Inbound) {
				assert.EqualValues(t, 4, msg.RoomID)
			},
		},
		{
			name:  "garbage room id",
			input: `{"type":"join_room","roomId":{"id":1}}`,
			validate: func(t *testing.T, msg *internal.Inbound) {
				assert.EqualValues(t, 0, msg.RoomID)
			},
		},
		{
			name:  "shoot keeps zero coordinates",
			input: `{"type":"shoot","x":0,"y":0}`,
			validate: func(t *testing.T, msg *internal.Inbound) {
				require.NotNil(t, msg.X)
				require.NotNil(t, msg.Y)
				assert.Equal(t, 0, *msg.X)
				assert.Equal(t, 0, *msg.Y)
			},
		},
		{
			name:    "shoot without coordinates",
			input:   `{"type":"shoot"}`,
			wantErr: true,
		},
		{
			name:    "shoot with one coordinate",
			input:   `{"type":"shoot","y":4}`,
			wantErr: true,
		},
		{
			name:  "other types ignore coordinates",
			input: `{"type":"get_rooms"}`,
			validate: func(t *testing.T, msg *internal.Inbound) {
				assert.Nil(t, msg.X)
				assert.Nil(t, msg.Y)
			},
		},
		{
			name:  "ships",
			input: `{"type":"place_ships","ships":[{"size":2,"x":1,"y":2,"isHorizontal":true}]}`,
			validate: func(t *testing.T, msg *internal.Inbound) {
				require.Len(t, msg.Ships, 1)
				assert.Equal(t, 2, msg.Ships[0].Size)
				assert.True(t, msg.Ships[0].Horizontal)
			},
		},
		{
			name:    "not json",
			input:   `join_room`,
			wantErr: true,
		},
		{
			name:    "missing type",
			input:   `{"roomId":1}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := internal.DecodeInbound([]byte(tt.input))
			if tt.wantErr {
				assert.ErrorIs(t, err, internal.ErrInvalidMessage)
				assert.True(t, internal.IsCode(err, internal.CodeInvalidMessage))
				return
			}
			require.NoError(t, err)
			tt.validate(t, msg)
		})
	}
}

// TestEvent_Encode 測試事件攤平
func TestEvent_Encode(t *testing.T) {
	ev := internal.Event{
		Type:   internal.EventShotResult,
		Fields: map[string]any{"x": 1, "hit": true, "type": "spoofed"},
	}

	data, err := ev.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"shot_result","x":1,"hit":true}`, string(data))

	data, err = internal.Event{Type: internal.EventGameStarting}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"game_starting"}`, string(data))
}

// TestGameError 測試錯誤碼比較
func TestGameError(t *testing.T) {
	wrapped := fmt.Errorf("join: %w", internal.ErrRoomFull)

	assert.ErrorIs(t, wrapped, internal.ErrRoomFull)
	assert.NotErrorIs(t, wrapped, internal.ErrRoomNotFound)
	assert.True(t, internal.IsCode(wrapped, internal.CodeRoomFull))
	assert.False(t, internal.IsCode(errors.New("plain"), internal.CodeRoomFull))

	ge := internal.AsGameError(wrapped)
	assert.Equal(t, internal.CodeRoomFull, ge.Code)
	assert.Equal(t, "room is full", ge.Message)

	// 非遊戲錯誤一律視為服務暫時不可用
	infra := internal.AsGameError(errors.New("dial tcp: connection refused"))
	assert.Equal(t, internal.CodeUnavailable, infra.Code)
	assert.ErrorIs(t, infra, internal.ErrUnavailable)
	assert.Contains(t, infra.Error(), "connection refused")

	data, err := json.Marshal(ge)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"ROOM_FULL","message":"room is full"}`, string(data))
}
