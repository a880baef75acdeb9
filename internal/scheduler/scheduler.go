package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/climadash/clima-dashboard/internal/weather"
)

// Scheduler periodically warms the cache for configured locations so
// steady-state requests stay on the cache path.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *weather.Service
	queries   []weather.Query
	interval  time.Duration
}

// New creates a Scheduler. An interval of zero disables it.
func New(queries []weather.Query, interval time.Duration, service *weather.Service) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		queries:   queries,
		interval:  interval,
	}
}

// Start schedules the periodic warm-up job and starts the underlying
// scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 || len(s.queries) == 0 {
		log.Println("scheduler: prefetch disabled; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		for _, q := range s.queries {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			_, source, err := s.service.GetHourly(ctx, q)
			cancel()
			if err != nil {
				log.Printf("scheduler: warm-up fetch failed for (%v, %v): %v", q.Latitude, q.Longitude, err)
				continue
			}
			log.Printf("scheduler: warmed cache for (%v, %v) from %s", q.Latitude, q.Longitude, source)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
