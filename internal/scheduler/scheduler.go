package scheduler

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mydia/mydia/internal/jobs"
	"github.com/mydia/mydia/internal/repository"
	"github.com/mydia/mydia/internal/stream"
)

// Scheduler runs periodic maintenance: reaping idle playback sessions and
// enqueueing probes for files that never got one.
type Scheduler struct {
	cron          *cron.Cron
	manager       *stream.Manager
	fileRepo      *repository.FileRepository
	queue         *jobs.Queue
	sessionMaxAge time.Duration
	probeBatch    int
}

func New(manager *stream.Manager, fileRepo *repository.FileRepository, queue *jobs.Queue, sessionMaxAge time.Duration, probeBatch int) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		manager:       manager,
		fileRepo:      fileRepo,
		queue:         queue,
		sessionMaxAge: sessionMaxAge,
		probeBatch:    probeBatch,
	}
}

func (s *Scheduler) Start() {
	s.cron.AddFunc("@every 5m", func() {
		s.manager.CleanupExpired(s.sessionMaxAge)
	})
	s.cron.AddFunc("@every 10m", s.enqueueUnprobed)
	s.cron.Start()
	log.Println("[scheduler] maintenance jobs scheduled")
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("[scheduler] stopped")
}

func (s *Scheduler) enqueueUnprobed() {
	files, err := s.fileRepo.ListUnprobed(s.probeBatch)
	if err != nil {
		log.Printf("[scheduler] error listing unprobed files: %v", err)
		return
	}
	for _, f := range files {
		if err := s.queue.EnqueueProbe(f.ID); err != nil {
			log.Printf("[scheduler] error enqueueing probe for %s: %v", f.ID, err)
		}
	}
	if len(files) > 0 {
		log.Printf("[scheduler] enqueued %d probe jobs", len(files))
	}
}
