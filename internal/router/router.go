package router

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/orderrelay/orderrelay/internal/api/v1"
)

func SetupRouter(webhookHandler *v1.WebhookHandler) *gin.Engine {
	router := gin.Default()

	router.POST("/webhook", webhookHandler.HandleOrderWebhook)
	router.GET("/health", v1.HealthHandler)

	return router
}
