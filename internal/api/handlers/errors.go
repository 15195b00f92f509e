package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"olympia_live/internal/engine"
)

// statusFor 把引擎層錯誤對應到 HTTP 狀態碼
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrConflict),
		errors.Is(err, engine.ErrAlreadyJudged),
		errors.Is(err, engine.ErrAlreadyAnswered),
		errors.Is(err, engine.ErrAlreadyEnded):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInvalidState),
		errors.Is(err, engine.ErrRoundNotConfigured),
		errors.Is(err, engine.ErrBuzzerDisabled),
		errors.Is(err, engine.ErrWrongRound),
		errors.Is(err, engine.ErrNoLiveQuestion),
		errors.Is(err, engine.ErrInvalidRound),
		errors.Is(err, engine.ErrDisqualified),
		errors.Is(err, engine.ErrNotYourTurn):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondError 統一回覆錯誤訊息
// 引擎層以外的錯誤不外流細節，避免洩漏內部狀態
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "伺服器內部錯誤"
	}
	c.JSON(status, gin.H{"error": message})
}
