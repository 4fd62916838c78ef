package http

import (
	"github.com/gin-gonic/gin"

	appsvc "docuchat/internal/app"
	"docuchat/internal/bootstrap"
	"docuchat/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	sessionService := appsvc.NewSessionService(app.SessionRepo, app.Gateway, app.HistoryCache, app.Logger)
	documentService := appsvc.NewDocumentService(app.SessionRepo, app.DocumentRepo, app.Pipeline, app.JobPublisher, app.Logger)
	chatService := appsvc.NewChatService(
		app.MessageRepo,
		app.HistoryCache,
		app.Gateway,
		app.LLMClient,
		app.Config.RAG.TopK,
		app.Config.RAG.HistoryWindow,
		app.Logger,
	)

	sessionHandler := handler.NewSessionHandler(sessionService)
	documentHandler := handler.NewDocumentHandler(documentService, app.Config.Upload.MaxBytes)
	chatHandler := handler.NewChatHandler(sessionService, chatService)

	v1 := router.Group("/api/v1")
	sessions := v1.Group("/sessions")
	sessions.POST("", sessionHandler.Create)
	sessions.GET("/:id", sessionHandler.Get)
	sessions.DELETE("/:id", sessionHandler.Delete)
	sessions.POST("/:id/documents", documentHandler.Upload)
	sessions.GET("/:id/documents", documentHandler.List)
	sessions.POST("/:id/chat", chatHandler.SendMessage)
	sessions.GET("/:id/history", chatHandler.History)

	return router
}
