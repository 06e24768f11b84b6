package internal

import (
	"bufio"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

// Handler HTTP 請求處理器
type Handler struct {
	manager *Manager
	hub     *WebSocketHub
	page    []byte
	logger  *slog.Logger
}

// NewHandler 創建 HTTP 處理器；page 是首頁 HTML
func NewHandler(manager *Manager, hub *WebSocketHub, page []byte, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		hub:     hub,
		page:    page,
		logger:  logger,
	}
}

// Routes 設定路由
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// 中間件鏈
	wrap := func(handler http.HandlerFunc) http.HandlerFunc {
		return h.recoverer(h.loggerMiddleware(handler))
	}

	// 首頁；帶 Upgrade 標頭的請求直接升級成遊戲連線
	mux.HandleFunc("GET /{$}", wrap(h.index))
	mux.HandleFunc("GET /index.html", wrap(h.index))
	mux.HandleFunc("GET /battleship", wrap(h.index))
	mux.HandleFunc("GET /ws", wrap(h.hub.ServeWS))

	// 大廳 API
	mux.HandleFunc("GET /api/v1/rooms", wrap(h.listRooms))
	mux.HandleFunc("GET /api/v1/rooms/{room_id}", wrap(h.getRoom))

	// 健康檢查
	mux.HandleFunc("GET /health", wrap(h.health))
	mux.HandleFunc("GET /stats", wrap(h.stats))

	return mux
}

// index 首頁或 WebSocket 升級
func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		h.hub.ServeWS(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.page)
}

// listRooms 大廳列表
func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.manager.ListRooms(r.Context())
	if err != nil {
		h.logger.Error("failed to list rooms", "error", err)
		h.errorResponse(w, "service temporarily unavailable", http.StatusServiceUnavailable)
		return
	}

	h.jsonResponse(w, map[string]any{
		"rooms": rooms,
	}, http.StatusOK)
}

// roomView 對外公開的房間資訊（不含棋盤）
type roomView struct {
	ID          int      `json:"id"`
	Phase       Phase    `json:"phase"`
	Players     []string `json:"players"`
	ShipsPlaced int      `json:"shipsPlaced"`
	GameStarted bool     `json:"gameStarted"`
}

// getRoom 單一房間
func (h *Handler) getRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.Atoi(r.PathValue("room_id"))
	if err != nil {
		h.errorResponse(w, ErrRoomNotFound.Message, http.StatusNotFound)
		return
	}

	st, err := h.manager.Room(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			h.errorResponse(w, ErrRoomNotFound.Message, http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load room", "room_id", roomID, "error", err)
		h.errorResponse(w, "service temporarily unavailable", http.StatusServiceUnavailable)
		return
	}

	h.jsonResponse(w, roomView{
		ID:          st.ID,
		Phase:       st.Phase,
		Players:     st.Seats,
		ShipsPlaced: st.ShipsPlaced,
		GameStarted: st.GameStarted(),
	}, http.StatusOK)
}

// health 健康檢查
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, map[string]any{
		"status": "healthy",
		"time":   time.Now().Unix(),
	}, http.StatusOK)
}

// stats 統計資訊
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.manager.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to collect stats", "error", err)
		h.errorResponse(w, "service temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	h.jsonResponse(w, stats, http.StatusOK)
}

// jsonResponse 返回 JSON 響應
func (h *Handler) jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// errorResponse 返回錯誤響應
func (h *Handler) errorResponse(w http.ResponseWriter, message string, status int) {
	h.jsonResponse(w, map[string]any{
		"error": message,
	}, status)
}

// loggerMiddleware 日誌中間件
func (h *Handler) loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next(ww, r)

		h.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.statusCode,
			"duration", time.Since(start))
	}
}

// recoverer panic 恢復中間件
func (h *Handler) recoverer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.logger.Error("panic while serving request",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path)

				h.errorResponse(w, "internal server error", http.StatusInternalServerError)
			}
		}()

		next(w, r)
	}
}

// responseWriter 包裝 ResponseWriter 以獲取狀態碼
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack WebSocket 升級需要接管底層連線
func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}
