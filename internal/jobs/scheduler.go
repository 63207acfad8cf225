package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"aetherscribe/internal/cache"
	"aetherscribe/internal/services"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler owns the periodic maintenance work: conversation autosave and
// CDN cache retention sweeps.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// New builds the scheduler and registers both jobs. autosaveInterval is how
// often dirty conversation state is flushed; retention is how long CDN cache
// entries live before the daily sweep removes them.
func New(conversation *services.ConversationService, store *cache.Diskstore, autosaveInterval time.Duration, retention time.Duration) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(autosaveInterval),
		gocron.NewTask(func() {
			if !conversation.Dirty() {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := conversation.SaveToStorage(ctx); err != nil {
				log.Printf("⚠️  [JOBS] Autosave failed: %v", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register autosave job: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			cutoff := time.Now().Add(-retention)
			removed, err := store.SweepOlderThan(cache.CDNCache, cutoff)
			if err != nil {
				log.Printf("⚠️  [JOBS] CDN cache sweep failed: %v", err)
				return
			}
			if removed > 0 {
				log.Printf("🗑️  [JOBS] CDN cache sweep removed %d entries", removed)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register cache sweep job: %w", err)
	}

	return &Scheduler{scheduler: s}, nil
}

// Start launches the jobs in the background.
func (s *Scheduler) Start() {
	s.scheduler.Start()
	log.Println("✅ [JOBS] Scheduler started")
}

// Stop shuts the scheduler down and waits for running jobs.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
