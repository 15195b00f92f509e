package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"olympia_live/internal/models"
	"olympia_live/internal/service"
	"olympia_live/internal/utils"
)

// LiveHandler 處理場次指令與選手、來賓的即時介面
type LiveHandler struct {
	sessionService *service.SessionService
	matchService   *service.MatchService
}

// NewLiveHandler 創建一個新的 LiveHandler 實例
func NewLiveHandler(sessionService *service.SessionService, matchService *service.MatchService) *LiveHandler {
	return &LiveHandler{
		sessionService: sessionService,
		matchService:   matchService,
	}
}

// OpenRoom 處理開房的請求
func (h *LiveHandler) OpenRoom(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input struct {
		RequiresPlayerPassword bool `json:"requires_player_password"`
	}
	// 請求體可省略，全部採預設值
	_ = c.ShouldBindJSON(&input)

	sess, err := h.sessionService.OpenRoom(c.Request.Context(), matchID, input.RequiresPlayerPassword)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// EndRoom 處理關房的請求
func (h *LiveHandler) EndRoom(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.sessionService.EndRoom(c.Request.Context(), matchID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "場次已結束"})
}

// SetRound 處理切換回合的請求
func (h *LiveHandler) SetRound(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input struct {
		RoundType string `json:"round_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sessionService.SetRound(c.Request.Context(), matchID, models.RoundType(input.RoundType)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已切換回合"})
}

// ShowQuestion 處理亮題的請求
func (h *LiveHandler) ShowQuestion(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input struct {
		QuestionID uint `json:"question_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sessionService.ShowQuestion(c.Request.Context(), matchID, input.QuestionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已亮題"})
}

// RevealAnswer 處理公布答案的請求
func (h *LiveHandler) RevealAnswer(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.sessionService.RevealAnswer(c.Request.Context(), matchID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已公布答案"})
}

// CompleteQuestion 處理收題的請求
func (h *LiveHandler) CompleteQuestion(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.sessionService.CompleteQuestion(c.Request.Context(), matchID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已收題"})
}

// StartTimer 處理啟動倒數的請求
func (h *LiveHandler) StartTimer(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input struct {
		DurationMs int64 `json:"duration_ms"`
	}
	_ = c.ShouldBindJSON(&input)

	if err := h.sessionService.StartTimer(c.Request.Context(), matchID, input.DurationMs); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "倒數開始"})
}

// SetBuzzer 處理開關搶答的請求
func (h *LiveHandler) SetBuzzer(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sessionService.SetBuzzer(c.Request.Context(), matchID, input.Enabled); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已更新搶答狀態"})
}

// JudgeDecision 處理主持人裁決的請求
func (h *LiveHandler) JudgeDecision(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input struct {
		QuestionID uint   `json:"question_id" binding:"required"`
		PlayerID   uint   `json:"player_id" binding:"required"`
		Decision   string `json:"decision" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	delta, err := h.sessionService.JudgeDecision(c.Request.Context(), matchID,
		input.QuestionID, input.PlayerID, models.Decision(input.Decision))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"points_delta": delta})
}

// FinalizeSpeedQuestion 處理加速回合結算的請求
func (h *LiveHandler) FinalizeSpeedQuestion(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input struct {
		QuestionID uint `json:"question_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	awards, err := h.sessionService.FinalizeSpeedQuestion(c.Request.Context(), matchID, input.QuestionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"awards": awards})
}

// ToggleStar 處理押星的請求
func (h *LiveHandler) ToggleStar(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input struct {
		QuestionID uint `json:"question_id" binding:"required"`
		PlayerID   uint `json:"player_id" binding:"required"`
		Armed      bool `json:"armed"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sessionService.ToggleStar(c.Request.Context(), matchID,
		input.QuestionID, input.PlayerID, input.Armed); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已更新押星"})
}

// SetDisqualified 處理設定選手資格的請求
func (h *LiveHandler) SetDisqualified(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input struct {
		PlayerID     uint `json:"player_id" binding:"required"`
		Disqualified bool `json:"disqualified"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sessionService.SetDisqualified(c.Request.Context(), matchID,
		input.PlayerID, input.Disqualified); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已更新選手資格"})
}

// resolvePlayer 由入場代碼與登入帳號找出選手的座位
// 選手只能以自己綁定的座位行動，不能代打別人的座位
func (h *LiveHandler) resolvePlayer(c *gin.Context) (*models.LiveSession, *models.MatchPlayer, bool) {
	sess, err := h.sessionService.ResolveJoinCode(c.Param("code"))
	if err != nil {
		respondError(c, err)
		return nil, nil, false
	}

	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "尚未登入"})
		return nil, nil, false
	}

	player, err := h.matchService.FindPlayerForUser(sess.MatchID, userID.(uint))
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "此帳號未綁定任何座位"})
		return nil, nil, false
	}
	return sess, player, true
}

// Buzz 處理選手搶答的請求
// 搶輸或不合格是非阻斷狀態，照常回覆判定結果
func (h *LiveHandler) Buzz(c *gin.Context) {
	sess, player, ok := h.resolvePlayer(c)
	if !ok {
		return
	}

	result, err := h.sessionService.Buzz(c.Request.Context(), sess.MatchID, player.ID)
	if err != nil && result == "" {
		respondError(c, err)
		return
	}

	resp := gin.H{"result": result}
	if err != nil {
		resp["reason"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// SubmitAnswer 處理選手作答的請求
func (h *LiveHandler) SubmitAnswer(c *gin.Context) {
	sess, player, ok := h.resolvePlayer(c)
	if !ok {
		return
	}

	var input struct {
		QuestionID     uint   `json:"question_id" binding:"required"`
		AnswerText     string `json:"answer_text"`
		ResponseTimeMs int64  `json:"response_time_ms"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := h.sessionService.SubmitAnswer(c.Request.Context(), sess.MatchID,
		input.QuestionID, player.ID, input.AnswerText, input.ResponseTimeMs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, answer)
}

// Snapshot 處理場次快照的請求，客戶端重連後以此對齊狀態
// 來賓查詢失敗時降級為等待，不回錯誤
func (h *LiveHandler) Snapshot(c *gin.Context) {
	role := viewerRole(c)

	snapshot, err := h.sessionService.Snapshot(c.Request.Context(), c.Param("code"), role)
	if err != nil {
		if role == models.RoleGuest {
			c.JSON(http.StatusOK, gin.H{"status": "waiting"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// Events 處理補拉事件的請求
func (h *LiveHandler) Events(c *gin.Context) {
	sess, err := h.sessionService.ResolveJoinCode(c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	var query struct {
		After int64 `form:"after"`
		Limit int   `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.sessionService.EventsSince(c.Request.Context(), sess.MatchID, query.After, query.Limit, viewerRole(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// viewerRole 取出請求者的角色，未登入一律視為來賓
// 快照路由是公開的，主持人帶 token 來時仍要認得出身分
func viewerRole(c *gin.Context) models.UserRole {
	if value, exists := c.Get("userRole"); exists {
		if role, ok := value.(models.UserRole); ok {
			return role
		}
	}

	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		if claims, err := utils.ParseToken(parts[1]); err == nil {
			return claims.Role
		}
	}
	return models.RoleGuest
}
