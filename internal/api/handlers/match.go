package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"olympia_live/internal/models"
	"olympia_live/internal/service"
)

// MatchHandler 處理比賽設定面的請求：比賽、回合、題目、選手
type MatchHandler struct {
	matchService *service.MatchService
}

// NewMatchHandler 創建一個新的 MatchHandler 實例
func NewMatchHandler(matchService *service.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

// parseID 解析路徑中的數字 ID
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "無效的 ID"})
		return 0, false
	}
	return uint(id), true
}

// CreateMatch 處理創建比賽的請求
func (h *MatchHandler) CreateMatch(c *gin.Context) {
	var input struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hostID, _ := c.Get("userID")
	match, err := h.matchService.CreateMatch(input.Name, hostID.(uint))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "創建比賽失敗"})
		return
	}

	c.JSON(http.StatusCreated, match)
}

// ListMatches 處理獲取比賽列表的請求
func (h *MatchHandler) ListMatches(c *gin.Context) {
	matches, err := h.matchService.ListMatches()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "無法取得比賽列表"})
		return
	}
	c.JSON(http.StatusOK, matches)
}

// GetMatch 處理獲取比賽訊息的請求
func (h *MatchHandler) GetMatch(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	match, err := h.matchService.GetMatch(matchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, match)
}

// CreateRound 處理建立回合的請求
func (h *MatchHandler) CreateRound(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input struct {
		RoundType  string `json:"round_type" binding:"required"`
		OrderIndex int    `json:"order_index"`
		Config     string `json:"config"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	round, err := h.matchService.CreateRound(matchID, models.RoundType(input.RoundType), input.OrderIndex, input.Config)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, round)
}

// ListRounds 處理獲取回合列表的請求
func (h *MatchHandler) ListRounds(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	rounds, err := h.matchService.ListRounds(matchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rounds)
}

// CreateQuestion 處理建立題目的請求
func (h *MatchHandler) CreateQuestion(c *gin.Context) {
	roundID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input struct {
		OrderIndex     int    `json:"order_index"`
		TargetPlayerID *uint  `json:"target_player_id"`
		Code           string `json:"code"`
		PointValue     int    `json:"point_value"`
		StarAllowed    bool   `json:"star_allowed"`
		Content        string `json:"content" binding:"required"`
		AnswerText     string `json:"answer_text"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	q, err := h.matchService.CreateQuestion(&models.RoundQuestion{
		MatchRoundID:   roundID,
		OrderIndex:     input.OrderIndex,
		TargetPlayerID: input.TargetPlayerID,
		Code:           input.Code,
		PointValue:     input.PointValue,
		StarAllowed:    input.StarAllowed,
		Content:        input.Content,
		AnswerText:     input.AnswerText,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// ListQuestions 處理獲取題目列表的請求
func (h *MatchHandler) ListQuestions(c *gin.Context) {
	roundID, ok := parseID(c, "id")
	if !ok {
		return
	}

	questions, err := h.matchService.ListQuestions(roundID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

// AssignQuestionTarget 處理指派題目歸屬的請求
func (h *MatchHandler) AssignQuestionTarget(c *gin.Context) {
	questionID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input struct {
		PlayerID *uint `json:"player_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	q, err := h.matchService.AssignQuestionTarget(questionID, input.PlayerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// AddPlayer 處理加入選手的請求
func (h *MatchHandler) AddPlayer(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input struct {
		SeatIndex   int    `json:"seat_index" binding:"required"`
		DisplayName string `json:"display_name" binding:"required"`
		UserID      *uint  `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	player, err := h.matchService.AddPlayer(matchID, input.SeatIndex, input.DisplayName, input.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, player)
}

// ListPlayers 處理獲取選手列表的請求
func (h *MatchHandler) ListPlayers(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	players, err := h.matchService.ListPlayers(matchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, players)
}
