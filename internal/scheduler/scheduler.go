package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/JustinTDCT/MarkerVault/internal/repository"
	"github.com/robfig/cron/v3"
)

// Broadcaster pushes events to connected clients.
type Broadcaster interface {
	Broadcast(event string, data interface{})
}

// Scheduler runs the periodic maintenance work: the nightly purge scan,
// backup-trail pruning, and expired-session cleanup.
type Scheduler struct {
	cron     *cron.Cron
	items    *repository.ItemRepository
	backups  *repository.BackupRepository
	sessions *repository.SessionRepository
	hub      Broadcaster

	retention time.Duration
}

func New(items *repository.ItemRepository, backups *repository.BackupRepository,
	sessions *repository.SessionRepository, hub Broadcaster, retentionDays int) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		items:     items,
		backups:   backups,
		sessions:  sessions,
		hub:       hub,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// Start registers the cron entries and begins the scheduler loop.
// purgeSchedule is a standard 5-field cron expression.
func (s *Scheduler) Start(purgeSchedule string) error {
	if _, err := s.cron.AddFunc(purgeSchedule, s.runPurgeScan); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("30 4 * * *", s.runPrune); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@hourly", s.runSessionCleanup); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("[scheduler] started (purge scan %q)", purgeSchedule)
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// runPurgeScan looks for markers whose backup trail survives but whose live
// row is gone (markers the media server deleted behind our back) and tells
// connected clients so they can offer a restore.
func (s *Scheduler) runPurgeScan() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	parentIDs, err := s.items.AllParentIDs(ctx)
	if err != nil {
		log.Printf("[scheduler] purge scan: list parents: %v", err)
		return
	}
	if len(parentIDs) == 0 {
		return
	}

	purged, err := s.backups.PurgedForParents(ctx, parentIDs)
	if err != nil {
		log.Printf("[scheduler] purge scan: %v", err)
		return
	}
	if len(purged) == 0 {
		log.Println("[scheduler] purge scan: no purged markers found")
		return
	}

	log.Printf("[scheduler] purge scan: %d purged markers found", len(purged))
	s.hub.Broadcast("purge:found", map[string]interface{}{
		"count":   len(purged),
		"markers": purged,
	})
}

func (s *Scheduler) runPrune() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.backups.PruneOlderThan(ctx, s.retention)
	if err != nil {
		log.Printf("[scheduler] backup prune: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[scheduler] backup prune: removed %d rows older than %s", n, s.retention)
	}
}

func (s *Scheduler) runSessionCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if n, err := s.sessions.DeleteExpired(ctx); err != nil {
		log.Printf("[scheduler] session cleanup: %v", err)
	} else if n > 0 {
		log.Printf("[scheduler] session cleanup: removed %d expired sessions", n)
	}
}
