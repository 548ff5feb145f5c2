// Package janitor runs background housekeeping: sweeping scratch directories
// left behind by crashed deployments and archiving terminal records.
package janitor

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/llm-code-deploy/deploy-backend/internal/deploy/repository"
	"github.com/llm-code-deploy/deploy-backend/internal/gitops"
)

// staleAge is how old a work dir must be before the sweep removes it.
// Normal deployments clean up after themselves within minutes.
const staleAge = 2 * time.Hour

type Scheduler struct {
	workRoot string
	records  *repository.DeploymentRepository
	archive  *repository.ArchiveRepository // nil when Postgres is not configured
}

func NewScheduler(workRoot string, records *repository.DeploymentRepository, archive *repository.ArchiveRepository) *Scheduler {
	return &Scheduler{
		workRoot: workRoot,
		records:  records,
		archive:  archive,
	}
}

// Start initializes cron tasks
func (s *Scheduler) Start() {
	c := cron.New()

	if _, err := c.AddFunc("@hourly", s.runSweep); err != nil {
		log.Printf("Failed to create sweep cron job: %v", err)
		return
	}

	if s.archive != nil {
		if _, err := c.AddFunc("@hourly", s.runArchive); err != nil {
			log.Printf("Failed to create archive cron job: %v", err)
			return
		}
	}

	log.Println("Janitor scheduler started (hourly sweep)")
	c.Start()
}

// runSweep removes stale deploy work dirs under the work root.
func (s *Scheduler) runSweep() {
	entries, err := os.ReadDir(s.workRoot)
	if err != nil {
		log.Printf("Janitor sweep: read work root: %v", err)
		return
	}

	cutoff := time.Now().Add(-staleAge)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), gitops.WorkDirPrefix) {
			continue
		}

		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(s.workRoot, e.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Printf("Janitor sweep: remove %s: %v", path, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Printf("Janitor sweep: removed %d stale work dirs", removed)
	}
}

// runArchive copies terminal deployment records into Postgres so they
// survive the Redis TTL.
func (s *Scheduler) runArchive() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	records, err := s.records.ScanRecords(ctx)
	if err != nil {
		log.Printf("Janitor archive: scan records: %v", err)
		return
	}

	archived := 0
	for _, d := range records {
		if !d.Terminal() {
			continue
		}
		if err := s.archive.Archive(ctx, d); err != nil {
			log.Printf("Janitor archive: %v", err)
			continue
		}
		archived++
	}

	if archived > 0 {
		log.Printf("Janitor archive: archived %d deployments", archived)
	}
}
