package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"olympia_live/internal/api/handlers"
	"olympia_live/internal/middleware"
	"olympia_live/internal/models"
	"olympia_live/internal/service"
)

func SetupRoutes(r *gin.Engine, services *service.Services) {
	// 初始化 handlers
	authHandler := handlers.NewAuthHandler(services.User)
	matchHandler := handlers.NewMatchHandler(services.Match)
	liveHandler := handlers.NewLiveHandler(services.Session, services.Match)
	wsHandler := handlers.NewWebSocketHandler(services.WebSocketManager, services.Session, services.Match)

	r.Use(middleware.RequestLogger())

	// API 路由群組
	api := r.Group("/api")

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "找不到該路徑",
		})
	})

	// 公開路由
	{
		// 用戶認證相關
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)

		// 基本的健康檢查
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})

		// 來賓入口：快照、補拉事件、WebSocket 推播（只讀投影）
		api.GET("/live/:code", liveHandler.Snapshot)
		api.GET("/live/:code/events", liveHandler.Events)
		api.GET("/live/:code/ws", wsHandler.HandleWebSocket)
	}

	// 需要驗證的路由
	authorized := api.Group("/")
	authorized.Use(middleware.AuthMiddleware())
	{
		// 比賽設定（主持人）
		matches := authorized.Group("/matches")
		matches.Use(middleware.RequireRole(models.RoleHost))
		{
			matches.GET("", matchHandler.ListMatches)
			matches.POST("", matchHandler.CreateMatch)
			matches.GET("/:id", matchHandler.GetMatch)

			matches.POST("/:id/rounds", matchHandler.CreateRound)
			matches.GET("/:id/rounds", matchHandler.ListRounds)
			matches.POST("/:id/players", matchHandler.AddPlayer)
			matches.GET("/:id/players", matchHandler.ListPlayers)

			// 場次指令
			matches.POST("/:id/open", liveHandler.OpenRoom)
			matches.POST("/:id/close", liveHandler.EndRoom)
			matches.POST("/:id/round", liveHandler.SetRound)
			matches.POST("/:id/question", liveHandler.ShowQuestion)
			matches.POST("/:id/reveal", liveHandler.RevealAnswer)
			matches.POST("/:id/complete", liveHandler.CompleteQuestion)
			matches.POST("/:id/timer", liveHandler.StartTimer)
			matches.POST("/:id/buzzer", liveHandler.SetBuzzer)
			matches.POST("/:id/judge", liveHandler.JudgeDecision)
			matches.POST("/:id/finalize-speed", liveHandler.FinalizeSpeedQuestion)
			matches.POST("/:id/star", liveHandler.ToggleStar)
			matches.POST("/:id/disqualify", liveHandler.SetDisqualified)
		}

		// 題庫設定（主持人）
		rounds := authorized.Group("/rounds")
		rounds.Use(middleware.RequireRole(models.RoleHost))
		{
			rounds.POST("/:id/questions", matchHandler.CreateQuestion)
			rounds.GET("/:id/questions", matchHandler.ListQuestions)
		}
		questions := authorized.Group("/questions")
		questions.Use(middleware.RequireRole(models.RoleHost))
		{
			questions.PUT("/:id/target", matchHandler.AssignQuestionTarget)
		}

		// 選手行動：搶答與作答，座位由帳號綁定決定
		live := authorized.Group("/live")
		live.Use(middleware.RequireRole(models.RolePlayer))
		{
			live.POST("/:code/buzz", liveHandler.Buzz)
			live.POST("/:code/answer", liveHandler.SubmitAnswer)
		}
	}
}
