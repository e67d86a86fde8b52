package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/cartowl/pkg/board"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const appName = "cartowl"

// Run serves the HTTP surface until the context is cancelled.
func Run(ctx context.Context, cfg Config, service *board.Service, logger *zap.Logger) error {
	handler := &httpHandler{
		logger:  logger,
		service: service,
		cfg:     cfg,
	}
	router := setupRouter(cfg, handler)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("cartowl listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func setupRouter(cfg Config, handler *httpHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Origin", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	api := router.Group("/api")
	api.GET("/health", handler.handleHealth)
	api.GET("/sections", handler.handleListSections)
	api.GET("/legend", handler.handleListLegend)
	api.POST("/requests", handler.handleCreateRequest)

	admin := api.Group("/admin")
	admin.POST("/login", handler.handleLogin)

	protected := admin.Group("")
	protected.Use(requireAdmin(cfg.AdminToken))
	protected.GET("/requests", handler.handleListRequests)
	protected.PUT("/requests/:id", handler.handleResolveRequest)
	protected.POST("/sections", handler.handleUnlockSection)
	protected.GET("/players", handler.handleListPlayers)
	protected.POST("/players", handler.handleCreatePlayer)
	protected.PUT("/players/:id", handler.handleUpdatePlayer)
	protected.GET("/legend", handler.handleListLegend)
	protected.POST("/legend", handler.handleCreateLegendEntry)
	protected.PUT("/legend/:id", handler.handleUpdateLegendEntry)
	protected.DELETE("/legend/:id", handler.handleDeleteLegendEntry)

	return router
}

// requireAdmin gates admin routes behind the shared bearer token.
func requireAdmin(adminToken string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authorization := ctx.GetHeader("Authorization")
		const prefix = "Bearer "
		if len(authorization) <= len(prefix) || authorization[:len(prefix)] != prefix {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("Unauthorized"))
			return
		}
		if authorization[len(prefix):] != adminToken {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("Unauthorized"))
			return
		}
		ctx.Next()
	}
}

func errorResponse(message string) gin.H {
	return gin.H{"error": message}
}
