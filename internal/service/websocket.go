package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"olympia_live/internal/models"
	"olympia_live/pkg/logger"
)

// Client 代表一個 WebSocket 客戶端連接
// SendChan 不會被關閉：斷線以 done 通知，避免推播端撞上已關閉的通道
type Client struct {
	Conn     *websocket.Conn // WebSocket 連接
	UserID   uint            // 帳號 ID，來賓可為 0
	MatchID  uint            // 所屬比賽
	Role     models.UserRole // host / player / guest
	SendChan chan []byte     // 已序列化的事件，異步送出
	done     chan struct{}   // 連線結束時關閉
}

// WebSocketManager 管理所有的 WebSocket 連接和事件推播
type WebSocketManager struct {
	clients    map[uint]map[*Client]bool // 兩層 map: matchID -> client -> bool
	clientsMux sync.RWMutex              // 用於保護 clients map 的讀寫鎖
}

// NewWebSocketManager 創建並初始化新的連線管理器
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients: make(map[uint]map[*Client]bool),
	}
}

// HandleConnection 處理新的 WebSocket 連接，阻塞直到連線結束
func (m *WebSocketManager) HandleConnection(conn *websocket.Conn, matchID, userID uint, role models.UserRole) {
	client := &Client{
		Conn:     conn,
		UserID:   userID,
		MatchID:  matchID,
		Role:     role,
		SendChan: make(chan []byte, 256), // 緩衝 256 筆，滿了即斷線
		done:     make(chan struct{}),
	}

	m.addClient(client)

	// 確保連接關閉時清理資源
	defer func() {
		m.removeClient(client)
		close(client.done)
		conn.Close()
	}()

	go m.writePump(client)
	m.readPump(client)
}

// readPump 維持讀取循環以偵測斷線
// 狀態指令一律走 HTTP，入站訊息只用於心跳，內容直接丟棄
func (m *WebSocketManager) readPump(client *Client) {
	client.Conn.SetReadLimit(1024)
	client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn(context.Background()).Err(err).Uint("match_id", client.MatchID).Msg("websocket 連線異常關閉")
			}
			break
		}
	}
}

// writePump 處理向客戶端發送事件的邏輯
func (m *WebSocketManager) writePump(client *Client) {
	// 心跳計時器，間隔需短於讀取端的 60 秒期限
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case message := <-client.SendChan:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-client.done:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// BroadcastEvent 向同場比賽的所有連線推播一筆事件
// 主持人以外收到的是去敏版本：作答內容在公布答案前不外流，
// 同題作答的其他選手也不例外
func (m *WebSocketManager) BroadcastEvent(matchID uint, ev *models.MatchEvent) {
	full, err := json.Marshal(ev)
	if err != nil {
		logger.Error(context.Background()).Err(err).Int64("event_id", ev.ID).Msg("事件序列化失敗")
		return
	}
	viewer := full
	if redacted := redactForViewer(ev); redacted != ev {
		if data, err := json.Marshal(redacted); err == nil {
			viewer = data
		}
	}

	m.clientsMux.RLock()
	clients := m.clients[matchID]
	targets := make([]*Client, 0, len(clients))
	for client := range clients {
		targets = append(targets, client)
	}
	m.clientsMux.RUnlock()

	for _, client := range targets {
		message := full
		if client.Role != models.RoleHost {
			message = viewer
		}
		select {
		case <-client.done:
			// 連線已結束，事件作廢，重連後由快照與補拉恢復
		case client.SendChan <- message:
			// 事件成功加入發送隊列
		default:
			// 客戶端隊列已滿，視為失聯並斷線
			m.removeClient(client)
			client.Conn.Close()
		}
	}
}

// redactForViewer 產生主持人以外可見的事件版本
// 作答事件含答案原文，公布前不得外流
func redactForViewer(ev *models.MatchEvent) *models.MatchEvent {
	if ev.EventType != models.EventAnswerReceived {
		return ev
	}
	clone := *ev
	clone.Payload = ""
	return &clone
}

// addClient 安全地添加新的客戶端連接
func (m *WebSocketManager) addClient(client *Client) {
	m.clientsMux.Lock()
	defer m.clientsMux.Unlock()

	if m.clients[client.MatchID] == nil {
		m.clients[client.MatchID] = make(map[*Client]bool)
	}
	m.clients[client.MatchID][client] = true
}

// removeClient 安全地移除客戶端連接
func (m *WebSocketManager) removeClient(client *Client) {
	m.clientsMux.Lock()
	defer m.clientsMux.Unlock()

	if clients, ok := m.clients[client.MatchID]; ok {
		delete(clients, client)
		// 如果比賽沒有任何連線了，刪除整個房間
		if len(clients) == 0 {
			delete(m.clients, client.MatchID)
		}
	}
}

// MatchClients 獲取指定比賽的在線連線數量
func (m *WebSocketManager) MatchClients(matchID uint) int {
	m.clientsMux.RLock()
	defer m.clientsMux.RUnlock()

	return len(m.clients[matchID])
}
