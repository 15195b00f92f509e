package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"olympia_live/internal/models"
	"olympia_live/internal/service"
	"olympia_live/internal/utils"
)

// 定義 WebSocket 升級器
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 注意：在生產環境中，應該檢查 origin
	},
}

// WebSocketHandler 處理 WebSocket 連接
type WebSocketHandler struct {
	wsManager      *service.WebSocketManager
	sessionService *service.SessionService
	matchService   *service.MatchService
}

// NewWebSocketHandler 創建一個新的 WebSocketHandler 實例
func NewWebSocketHandler(wsManager *service.WebSocketManager, sessionService *service.SessionService, matchService *service.MatchService) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:      wsManager,
		sessionService: sessionService,
		matchService:   matchService,
	}
}

// HandleWebSocket 處理 WebSocket 連接請求
// 以入場代碼定位場次；角色決定收到的事件版本，來賓收去敏版
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	sess, err := h.sessionService.ResolveJoinCode(c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	userID, role := h.identify(c, sess.MatchID)

	// 升級 HTTP 連接為 WebSocket 連接
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "升級WebSocket失敗"})
		return
	}

	// 阻塞直到連線結束，清理由連線管理器負責
	h.wsManager.HandleConnection(conn, sess.MatchID, userID, role)
}

// identify 確定連線者的身份
// 瀏覽器的 WebSocket 不便帶 Authorization 頭，token 改由查詢參數傳遞；
// 未登入或帳號未綁定座位的一律視為來賓，主持人與選手保留完整視角
func (h *WebSocketHandler) identify(c *gin.Context, matchID uint) (uint, models.UserRole) {
	token := c.Query("token")
	if token == "" {
		return 0, models.RoleGuest
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		return 0, models.RoleGuest
	}

	if claims.Role == models.RolePlayer {
		// 確認選手真的在這場比賽有座位
		if _, err := h.matchService.FindPlayerForUser(matchID, claims.UserID); err != nil {
			return claims.UserID, models.RoleGuest
		}
	}
	return claims.UserID, claims.Role
}
