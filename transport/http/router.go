package http

import (
	"github.com/gin-gonic/gin"

	"github.com/layer-3/pulselink/listener"
	"github.com/layer-3/pulselink/service"
)

// RouterDeps are the services behind the HTTP API. Connect is nil when wallet
// connect is disabled; its routes are then not registered. /deeplink needs
// both Listener and Sink.
type RouterDeps struct {
	Auth     *service.AuthService
	Connect  *service.ConnectService
	Sink     *service.AuthSink
	Listener *listener.Listener
}

// SetupRouter sets up the Gin router
func SetupRouter(deps RouterDeps) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(deps.Auth)

	router.GET("/healthz", Health)

	auth := router.Group("/auth")
	{
		auth.POST("/refresh", handlers.Refresh)
		auth.POST("/logout", handlers.Logout)
	}

	if deps.Connect != nil {
		connect := NewConnectHandlers(deps.Connect, deps.Sink, deps.Listener)
		router.POST("/connect", connect.Start)
		router.DELETE("/connect", connect.Cancel)
		router.GET("/connect/status", connect.Status)
		if deps.Listener != nil && deps.Sink != nil {
			router.POST("/deeplink", connect.DeepLink)
		}
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(deps.Auth))
	{
		api.GET("/me", handlers.Me)
		api.GET("/authorize", handlers.Authorize)
	}

	return router
}
