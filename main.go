package main

import (
	"context"

	"github.com/gin-gonic/gin"

	"olympia_live/internal/api"
	"olympia_live/internal/models"
	"olympia_live/internal/repository"
	"olympia_live/internal/service"
	"olympia_live/internal/storage"
	"olympia_live/internal/utils"
	"olympia_live/pkg/config"
	"olympia_live/pkg/logger"
)

func main() {
	ctx := context.Background()

	// 載入應用程式配置
	cfg, err := config.Load()
	if err != nil {
		logger.Error(ctx).Err(err).Msg("載入配置失敗")
		return
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format)
	utils.SetJWTSecret(cfg.JWT.Secret)

	// 初始化資料庫連接
	db, err := storage.NewPostgresDB(cfg.DB.Host, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.Port)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("連接資料庫失敗")
		return
	}
	// 確保在程序結束時關閉數據庫連接
	defer db.Close()

	// 自動遷移資料庫結構
	if err := db.AutoMigrate(
		&models.User{},
		&models.Match{},
		&models.MatchRound{},
		&models.RoundQuestion{},
		&models.MatchPlayer{},
		&models.LiveSession{},
		&models.BuzzerEvent{},
		&models.Answer{},
		&models.StarUse{},
		&models.MatchScore{},
		&models.MatchEvent{},
	); err != nil {
		logger.Error(ctx).Err(err).Msg("資料庫遷移失敗")
		return
	}

	// 初始化 repositories 與 services
	repos := repository.NewRepositories(db.DB)
	services, err := service.NewServices(repos, cfg.Engine.NodeID)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("初始化服務失敗")
		return
	}

	// 設置 Gin 路由
	r := gin.Default()
	api.SetupRoutes(r, services)

	// 啟動伺服器
	logger.Info(ctx).Str("address", cfg.Server.Address).Msg("伺服器啟動")
	if err := r.Run(cfg.Server.Address); err != nil {
		logger.Error(ctx).Err(err).Msg("伺服器異常結束")
	}
}
