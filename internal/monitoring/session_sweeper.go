package monitoring

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// SessionStore is the slice of the user service the sweeper needs.
type SessionStore interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// SessionSweeper periodically deletes expired session rows so the session
// table keeps tracking only the live token set.
type SessionSweeper struct {
	sessions SessionStore
	schedule cron.Schedule
	ticker   *time.Ticker
	done     chan bool
}

// NewSessionSweeper creates a sweeper from a cron spec like "@hourly".
func NewSessionSweeper(sessions SessionStore, cronSpec string) (*SessionSweeper, error) {
	schedule, err := cron.ParseStandard(cronSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid session sweep cron spec %q: %w", cronSpec, err)
	}
	return &SessionSweeper{
		sessions: sessions,
		schedule: schedule,
		done:     make(chan bool),
	}, nil
}

// Run starts the sweeper's ticking loop.
func (s *SessionSweeper) Run() {
	log.Println("Starting session sweeper...")
	s.ticker = time.NewTicker(1 * time.Minute)
	defer s.ticker.Stop()

	// Run once immediately on start
	s.sweep()
	next := s.schedule.Next(time.Now())

	for {
		select {
		case <-s.done:
			log.Println("Stopping session sweeper.")
			return
		case now := <-s.ticker.C:
			if now.After(next) {
				s.sweep()
				next = s.schedule.Next(now)
			}
		}
	}
}

// Stop halts the sweeper.
func (s *SessionSweeper) Stop() {
	s.done <- true
}

func (s *SessionSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := s.sessions.DeleteExpiredSessions(ctx)
	if err != nil {
		log.Printf("Session sweeper: failed to delete expired sessions: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Session sweeper: removed %d expired sessions", removed)
	}
}
