package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/safetalk/safetalk-server/internal/auth"
	"github.com/safetalk/safetalk-server/internal/config"
	"github.com/safetalk/safetalk-server/internal/core"
	"github.com/safetalk/safetalk-server/internal/service/chat"
	"github.com/safetalk/safetalk-server/internal/service/comments"
)

// NewServer builds the HTTP server: WebSocket on a plain mux, health, metrics and REST on gin.
func NewServer(
	hub core.Hub,
	authService *auth.Service,
	chatService *chat.Service,
	commentService *comments.Service,
	cfg *config.Config,
	logger *zerolog.Logger,
) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	if cfg.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	apiHandlers := NewAPIHandlers(authService, logger)
	chatHandlers := NewChatHandlers(chatService, logger)
	commentHandlers := NewCommentHandlers(commentService, logger)

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	protected := api.Group("", AuthMiddleware(authService, logger))
	{
		chatGroup := protected.Group("/chat")
		chatGroup.GET("/messages/:username", chatHandlers.Messages)
		chatGroup.GET("/conversations", chatHandlers.Conversations)
		chatGroup.GET("/online-users", chatHandlers.OnlineUsers)
		chatGroup.GET("/bullying-report", chatHandlers.BullyingReport)
		chatGroup.GET("/can-chat", chatHandlers.CanChat)

		protected.POST("/comment/:post_id", commentHandlers.Create)
	}

	// The WebSocket upgrade hijacks the connection, which gin's response
	// writer refuses once headers are flushed, so /ws bypasses the router.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, cfg, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
