package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"carmarket/api/internal/services"
)

const sweepTimeout = 5 * time.Minute

// Scheduler runs the periodic maintenance jobs of the bg worker.
type Scheduler struct {
	cron    *cron.Cron
	rentals services.IRentalService
	now     func() time.Time
}

// New creates a Scheduler that expires stale pending rentals on sweepSpec
// (standard 5-field cron or a descriptor such as "@every 1h").
func New(rentals services.IRentalService, sweepSpec string) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		rentals: rentals,
		now:     func() time.Time { return time.Now().UTC() },
	}
	if _, err := s.cron.AddFunc(sweepSpec, s.ExpireStaleRentals); err != nil {
		return nil, fmt.Errorf("invalid stale rental sweep schedule %q: %w", sweepSpec, err)
	}
	return s, nil
}

// ExpireStaleRentals cancels pending requests whose start date has passed.
func (s *Scheduler) ExpireStaleRentals() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.rentals.ExpireStalePending(ctx, s.now())
	if err != nil {
		log.Printf("Stale rental sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Stale rental sweep cancelled %d pending request(s)", n)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("Scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("Scheduler stopped")
}
