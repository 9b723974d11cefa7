package handler

import (
	"transfers-client/internal/handler/response"

	"github.com/gin-gonic/gin"
)

// HealthCheck 服务健康检查
// @Summary Check system health
// @Tags system
// @Produce json
// @Success 200 {object} response.Response
// @Router /health [get]
func HealthCheck(c *gin.Context) {
	response.Success(c, gin.H{
		"status":  "UP",
		"version": "1.0.0",
		"service": "transfers-server",
	})
}
