package http

import "github.com/gin-gonic/gin"

// Register mounts the deployment routes. submitMiddleware applies only to
// the submit route (rate limiting).
func (h *Handler) Register(r gin.IRouter, submitMiddleware ...gin.HandlerFunc) {
	handlers := append(submitMiddleware, h.Submit)
	r.POST("/submit", handlers...)

	r.GET("/deployments/:id", h.GetDeployment)
	r.GET("/tasks/:task/deployments", h.ListTaskDeployments)
}
