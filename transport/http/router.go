package http

import (
	"github.com/gin-gonic/gin"

	"github.com/flarexio/ecochat"
)

func AddRouters(r *gin.Engine, endpoints ecochat.EndpointSet) {
	// RESTful API routes
	api := r.Group("/api")
	{
		api.POST("/sessions", StartSessionHandler(endpoints.StartSession))
		api.DELETE("/sessions/:session_id", EndSessionHandler(endpoints.EndSession))
		api.PUT("/sessions/:session_id/settings", UpdateSettingsHandler(endpoints.UpdateSettings))
		api.POST("/sessions/:session_id/messages", SendMessageHandler(endpoints.SendMessage))
		api.GET("/sessions/:session_id/history", HistoryHandler(endpoints.History))
	}
}
