// Package battleship 是一個兩人對戰的海戰棋房間伺服器。
//
// 固定數量的房間（預設 5 間），每間兩個座位。玩家連線後從大廳選房入座，
// 兩人到齊後各自佈陣，接著輪流向對方棋盤開火，直到一方艦隊全滅。
//
// 房間生命週期
//
//	empty → waiting → placing → in_progress → finished → waiting
//
//   - 第一位玩家入座：empty → waiting
//   - 第二位玩家入座：waiting → placing
//   - 雙方提交合法艦隊：placing → in_progress，隨機決定先手
//   - 一方艦隊全滅：in_progress → finished，立即重置回 waiting（兩人留座）
//   - 對局中任一方離開：重置回 waiting
//
// 艦隊規則
//
// 10×10 棋盤，1 艘 4 格、2 艘 3 格、3 艘 2 格、4 艘 1 格，共 20 格。
// 船與船之間至少隔一格，斜角也算；貼著棋盤邊緣不算違規。
//
// # WebSocket 協定
//
// 每則訊息都是帶 type 欄位的 JSON 物件：
//
//	→ {"type": "join_room", "roomId": 1}
//	← {"type": "player_joined", "playerId": "...", "playersCount": 1}
//	→ {"type": "place_ships", "ships": [{"size": 4, "x": 0, "y": 0, "isHorizontal": true}, ...]}
//	→ {"type": "shoot", "x": 3, "y": 7}
//	← {"type": "shot_result", "x": 3, "y": 7, "hit": true, "shipSunk": false, "gameOver": false, "playerId": "..."}
//
// 架構設計
//
//   - internal/battle：棋盤、艦隊驗證、射擊判定（純計算，不持有鎖）
//   - Store：房間狀態儲存，記憶體或 Redis（WATCH/MULTI 樂觀鎖）
//   - Manager：房間狀態機，每個房間一把鎖，提交後依序投遞事件
//   - Router：單播、房間廣播、大廳廣播；可選 NATS 做跨行程投遞
//   - WebSocketHub：連線讀寫與心跳
//   - Handler：首頁、健康檢查、大廳 JSON
//
// 單機啟動：
//
//	go run ./cmd/server -port 8080
//
// 多機部署（共用 Redis 與 NATS）：
//
//	REDIS_URL=redis://redis:6379/0 NATS_URL=nats://nats:4222 go run ./cmd/server
//
// 配置選項
//
//   - -config：YAML 配置檔
//   - -port：服務監聽端口（預設 8080）
//   - -rooms：房間數量（預設 5）
//   - -store：memory 或 redis
//   - -log-level：日誌級別（debug/info/warn/error）
//   - -log-format：text 或 json
package battleship
