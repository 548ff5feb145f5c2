package main

import (
	"context"
	"log"

	"github.com/llm-code-deploy/deploy-backend/config"
	"github.com/llm-code-deploy/deploy-backend/internal/bootstrap"
	"github.com/llm-code-deploy/deploy-backend/internal/deploy/repository"
	"github.com/llm-code-deploy/deploy-backend/internal/deploy/service"
	"github.com/llm-code-deploy/deploy-backend/internal/gitops"
	"github.com/llm-code-deploy/deploy-backend/internal/janitor"
	"github.com/llm-code-deploy/deploy-backend/internal/llm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	redisClient, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	records := repository.NewDeploymentRepository(redisClient)

	// Postgres archive is optional; without DB_DSN history just expires
	// with the Redis TTL.
	var archive *repository.ArchiveRepository
	db, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: cfg.Database.DSN})
	if err != nil {
		log.Printf("archive disabled: %v", err)
	} else {
		defer db.Close()
		archive = repository.NewArchiveRepository(db)
		if err := archive.EnsureSchema(ctx); err != nil {
			log.Fatalf("archive schema: %v", err)
		}
	}

	generator := llm.NewGeminiClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
	publisher := gitops.NewPublisher(gitops.NewRealRunner(), cfg.GitHub.User, cfg.GitHub.Token, cfg.Deploy.WorkDir)
	pages := gitops.NewPagesEnabler(cfg.GitHub.User, cfg.GitHub.Token)
	notifier := service.NewEvaluationNotifier(cfg.Deploy.NotifyRetries)

	deploySvc := service.NewDeployService(generator, publisher, pages, notifier, records, cfg.Deploy.PagesWait)

	janitor.NewScheduler(cfg.Deploy.WorkDir, records, archive).Start()

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "deploy-backend",
		Version:     cfg.App.Version,
		APISecret:   cfg.Deploy.APISecret,
		DeploySvc:   deploySvc,
		Redis:       redisClient,
		DB:          db,
	})

	log.Printf("listening on :%s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
