package notify

import (
	"context"
	"log"
	"time"
)

// Sweeper promotes scheduled notifications whose time has come. The repo's
// ClaimDue flips pending records to sent atomically before any delivery
// attempt, so overlapping sweep runs never double-send a record.
type Sweeper struct {
	repo       NotificationRepository
	dispatcher *Dispatcher
	interval   time.Duration
}

func NewSweeper(repo NotificationRepository, dispatcher *Dispatcher, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{repo: repo, dispatcher: dispatcher, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping on every tick.
func (s *Sweeper) Run(ctx context.Context) {
	log.Printf("[notify] scheduled sweep every %s", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce claims and delivers everything currently due.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	due, err := s.repo.ClaimDue(ctx, time.Now())
	if err != nil {
		log.Printf("[notify] claim due notifications: %v", err)
		return 0
	}

	for i := range due {
		s.dispatcher.Deliver(ctx, &due[i])
	}
	if len(due) > 0 {
		log.Printf("[notify] promoted %d scheduled notifications", len(due))
	}
	return len(due)
}
