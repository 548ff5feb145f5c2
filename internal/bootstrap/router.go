package bootstrap

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	httpapi "github.com/llm-code-deploy/deploy-backend/internal/api/http"
	"github.com/llm-code-deploy/deploy-backend/internal/api/http/middleware"
	deployhttp "github.com/llm-code-deploy/deploy-backend/internal/deploy/http"
	"github.com/llm-code-deploy/deploy-backend/internal/deploy/service"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	APISecret   string
	DeploySvc   *service.DeployService
	Redis       *redis.Client
	DB          *pgxpool.Pool
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())
	r.Use(middleware.RequestIDMiddleware())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Redis, dep.DB)
	healthHandler.RegisterRoutes(r)

	deployHandler := deployhttp.New(dep.DeploySvc, dep.APISecret)
	r.GET("/", deployHandler.Root)

	api := r.Group("/api")

	// Deployments are expensive, keep the submit budget small.
	submitLimiter := middleware.RateLimitMiddleware(rate.Limit(1), 5)
	deployHandler.Register(api, submitLimiter)

	return r
}
