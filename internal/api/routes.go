package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(handler *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.CustomRecovery(handler.Recover))
	r.NoRoute(handler.NotFound)

	r.GET("/health", handler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := r.Group("/api/v1")
	{
		v1.GET("/tickets", handler.ListTickets)
		v1.POST("/tickets", handler.CreateTicket)
		v1.GET("/tickets/:id", handler.GetTicket)
		v1.POST("/tickets/:id/feedback", handler.RecordFeedback)
		v1.POST("/reports", handler.RenderReport)
		v1.POST("/alerts/alertmanager", handler.ReceiveAlertManagerWebhook)
	}

	return r
}
