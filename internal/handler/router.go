package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coursepilot/backend/internal/middleware"
)

type RouterDeps struct {
	Auth      *AuthHandler
	Materials *MaterialHandler
	Files     *FileHandler
	Search    *SearchHandler
	Chat      *ChatHandler
	Generate  *GenerateHandler
	JWTSecret []byte
	// AIRateWindow throttles the generation-heavy routes; zero disables.
	AIRateWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/register", deps.Auth.Register)
	api.POST("/auth/login", deps.Auth.Login)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.GET("/auth/me", deps.Auth.Me)

	authGroup.GET("/materials", deps.Materials.List)
	authGroup.GET("/materials/:id", deps.Materials.Get)
	authGroup.GET("/materials/:id/download", deps.Files.Download)

	aiGroup := authGroup.Group("")
	aiGroup.Use(middleware.RateLimit(deps.AIRateWindow))
	aiGroup.POST("/search", deps.Search.Search)
	aiGroup.POST("/ask", deps.Search.Ask)
	aiGroup.POST("/generate", deps.Generate.Generate)
	aiGroup.POST("/chat", deps.Chat.Send)
	aiGroup.POST("/conversations/:id/chat", deps.Chat.Chat)

	authGroup.POST("/conversations", deps.Chat.CreateConversation)
	authGroup.GET("/conversations", deps.Chat.ListConversations)
	authGroup.GET("/conversations/:id", deps.Chat.GetConversation)
	authGroup.GET("/conversations/:id/messages", deps.Chat.GetMessages)
	authGroup.DELETE("/conversations/:id", deps.Chat.DeleteConversation)

	adminGroup := authGroup.Group("")
	adminGroup.Use(middleware.RequireAdmin())
	adminGroup.POST("/materials", deps.Materials.Upload)
	adminGroup.PUT("/materials/:id", deps.Materials.Update)
	adminGroup.DELETE("/materials/:id", deps.Materials.Delete)
	adminGroup.POST("/materials/:id/ingest", deps.Materials.Ingest)
	adminGroup.POST("/ingest", deps.Materials.IngestAll)
	adminGroup.GET("/index/status", deps.Materials.IndexStatus)
}
