package internal

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Scope 投遞範圍
type Scope string

const (
	ScopeOne  Scope = "one"  // 單一 session
	ScopeRoom Scope = "room" // 房間內所有入座者
	ScopeAll  Scope = "all"  // 所有連線（大廳廣播）
)

// Delivery 一次投遞
//
// Targets 在送出前就已解析完成（房間成員在提交當下的快照），
// 收到的行程只需要找出自己持有的連線。
type Delivery struct {
	Scope   Scope           `json:"scope"`
	Targets []string        `json:"targets,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Bus 跨行程投遞
//
// 設定 Bus 後，所有投遞都經由 Bus 發出，包括本機自己的連線，
// 讓同一房間的事件在每台機器上都以相同順序抵達。
type Bus interface {
	Publish(ctx context.Context, d Delivery) error
	Subscribe(handler func(Delivery)) error
	Close() error
}

// Membership 查詢房間成員
type Membership interface {
	Members(ctx context.Context, roomID int) ([]string, error)
}

// Router 事件路由
//
// 三種投遞：ToOne、ToRoom、ToAll。送往已關閉的連線直接略過，不重試、不排隊。
type Router struct {
	dir     *Directory
	members Membership
	bus     Bus
	logger  *slog.Logger
}

// NewRouter 建立路由；bus 可為 nil（單機模式）
func NewRouter(dir *Directory, members Membership, bus Bus, logger *slog.Logger) *Router {
	return &Router{
		dir:     dir,
		members: members,
		bus:     bus,
		logger:  logger,
	}
}

// Start 訂閱 Bus
func (r *Router) Start() error {
	if r.bus == nil {
		return nil
	}
	return r.bus.Subscribe(r.deliver)
}

// ToOne 送給單一 session
func (r *Router) ToOne(ctx context.Context, sessionID string, ev Event) {
	r.route(ctx, ScopeOne, []string{sessionID}, ev)
}

// ToRoom 送給房間內所有入座者
func (r *Router) ToRoom(ctx context.Context, roomID int, ev Event) {
	members, err := r.members.Members(ctx, roomID)
	if err != nil {
		r.logger.Error("failed to resolve room members",
			"room_id", roomID,
			"event", ev.Type,
			"error", err)
		return
	}
	if len(members) == 0 {
		return
	}
	r.route(ctx, ScopeRoom, members, ev)
}

// ToAll 送給所有連線
func (r *Router) ToAll(ctx context.Context, ev Event) {
	r.route(ctx, ScopeAll, nil, ev)
}

func (r *Router) route(ctx context.Context, scope Scope, targets []string, ev Event) {
	payload, err := ev.Encode()
	if err != nil {
		r.logger.Error("failed to encode event", "event", ev.Type, "error", err)
		return
	}

	d := Delivery{Scope: scope, Targets: targets, Payload: payload}
	if r.bus == nil {
		r.deliver(d)
		return
	}

	if err := r.bus.Publish(ctx, d); err != nil {
		r.logger.Error("failed to publish delivery",
			"event", ev.Type,
			"scope", scope,
			"error", err)
	}
}

// deliver 投遞給本機持有的連線
func (r *Router) deliver(d Delivery) {
	if d.Scope == ScopeAll {
		r.dir.SendAll(d.Payload)
		return
	}

	for _, id := range d.Targets {
		if !r.dir.Has(id) {
			continue
		}
		if !r.dir.Send(id, d.Payload) {
			r.logger.Warn("dropped event for closed connection",
				"session_id", id,
				"scope", d.Scope)
		}
	}
}
