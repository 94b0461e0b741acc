package main

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/yourusername/geo-accounts/internal/auth"
	"github.com/yourusername/geo-accounts/internal/config"
	"github.com/yourusername/geo-accounts/internal/countries"
	"github.com/yourusername/geo-accounts/internal/logging"
	"github.com/yourusername/geo-accounts/internal/storage"
)

// newRouter はミドルウェアとルーティングを設定した gin.Engine を返します。
func newRouter(cfg *config.Config, db *sqlx.DB, logger *slog.Logger) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery(), logging.Middleware(logger))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
		logging.RequestIDHeader,
	}
	corsConfig.ExposeHeaders = []string{logging.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	authManager, err := auth.NewManager(
		storage.NewUserStore(db),
		auth.NewTokenIssuer(cfg.SigningKey(), cfg.TokenTTL()),
	)
	if err != nil {
		return nil, err
	}

	setupRoutes(router, authManager, storage.NewCountryStore(db))
	return router, nil
}

// handlePing はヘルスチェックエンドポイントのハンドラーです。
func handlePing(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// setupRoutes は API グループと認証周りの配線を行います。
func setupRoutes(router *gin.Engine, authManager *auth.Manager, countryStore countries.Store) {
	api := router.Group("/api")
	{
		api.GET("/ping", handlePing)

		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/sign-in", authManager.SignIn)
			authRoutes.POST("/register", authManager.Register)
		}

		countryRoutes := api.Group("/countries")
		{
			countryRoutes.GET("", countries.ListHandler(countryStore))
			countryRoutes.GET("/:alpha2", countries.GetHandler(countryStore))
		}

		// トークン必須の API はここにぶら下げる（現時点で保護対象のエンドポイントは無い）
		protected := api.Group("")
		protected.Use(authManager.RequireToken())
	}
}
