package http

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/llm-code-deploy/deploy-backend/internal/api/http/middleware"
	"github.com/llm-code-deploy/deploy-backend/internal/deploy/domain"
	"github.com/llm-code-deploy/deploy-backend/internal/deploy/service"
)

// Handler exposes the deployment API.
type Handler struct {
	svc       *service.DeployService
	apiSecret string
}

// New creates a new deployment handler
func New(svc *service.DeployService, apiSecret string) *Handler {
	return &Handler{
		svc:       svc,
		apiSecret: apiSecret,
	}
}

// Submit accepts a task request, verifies the shared secret and starts
// processing in the background. The response is returned immediately;
// progress is tracked on the deployment record.
func (h *Handler) Submit(c *gin.Context) {
	var req domain.TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	// Secret check happens before anything else touches an external system.
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.apiSecret)) != 1 {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid secret"})
		return
	}

	if req.Round < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid round number"})
		return
	}

	d, err := h.svc.Accept(c.Request.Context(), &req)
	if err == domain.ErrDuplicateNonce {
		// Replayed submission: acknowledge, do not reprocess.
		c.JSON(http.StatusOK, gin.H{
			"status":  "duplicate",
			"message": "Task with this nonce was already received.",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to accept task"})
		return
	}

	// Process on a background context so the response can return now; the
	// request ID is carried over for log correlation.
	bgCtx := middleware.WithRequestID(context.Background(), c.GetString("request_id"))
	go h.svc.Process(bgCtx, &req, d)

	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"message":       "Task received and is being processed.",
		"deployment_id": d.ID,
	})
}

// GetDeployment returns one deployment record by ID.
func (h *Handler) GetDeployment(c *gin.Context) {
	id := c.Param("id")

	d, err := h.svc.GetDeployment(c.Request.Context(), id)
	if err == domain.ErrDeploymentNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "deployment not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get deployment"})
		return
	}

	c.JSON(http.StatusOK, d)
}

// ListTaskDeployments returns every deployment record for a task.
func (h *Handler) ListTaskDeployments(c *gin.Context) {
	task := c.Param("task")

	list, err := h.svc.ListDeployments(c.Request.Context(), task)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list deployments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": task, "deployments": list, "count": len(list)})
}

// Root is the service banner.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "LLM Code Deployment API is running."})
}
