package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/orbitapp/backend/internal/domain/events"
	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/pkg/constants"
)

// SchedulerService runs the periodic maintenance jobs: guest workspace
// sweeps, contract sign-token expiry, session cleanup and the weekly digest.
type SchedulerService struct {
	cron      *cron.Cron
	guests    *GuestService
	contracts *ContractService
	sessions  *persistence.SessionRepository
	users     *persistence.UserRepository
	payouts   *persistence.PayoutRepository
	outbox    *persistence.OutboxRepository
}

func NewSchedulerService(guests *GuestService, contracts *ContractService,
	sessions *persistence.SessionRepository, users *persistence.UserRepository,
	payouts *persistence.PayoutRepository, outbox *persistence.OutboxRepository) *SchedulerService {
	return &SchedulerService{
		cron:      cron.New(),
		guests:    guests,
		contracts: contracts,
		sessions:  sessions,
		users:     users,
		payouts:   payouts,
		outbox:    outbox,
	}
}

// Start registers and launches the jobs.
func (s *SchedulerService) Start() error {
	jobs := []struct {
		schedule string
		name     string
		run      func()
	}{
		{constants.GuestSweepSchedule, "guest sweep", s.sweepGuests},
		{constants.ContractExpirySched, "contract expiry", s.expireContracts},
		{constants.ContractExpirySched, "session cleanup", s.cleanSessions},
		{constants.WeeklyDigestSched, "weekly digest", s.weeklyDigest},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.schedule, job.run); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
	}

	s.cron.Start()
	log.Printf("✅ Scheduler started with %d job(s)", len(jobs))
	return nil
}

// Stop halts scheduling and waits for running jobs.
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("✅ Scheduler stopped")
}

func (s *SchedulerService) sweepGuests() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.guests.SweepExpired(ctx); err != nil {
		log.Printf("❌ Guest sweep failed: %v", err)
	}
}

func (s *SchedulerService) expireContracts() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := s.contracts.ExpireStale(ctx)
	if err != nil {
		log.Printf("❌ Contract expiry failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("⏰ Expired %d stale contract sign token(s)", n)
	}
}

func (s *SchedulerService) cleanSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := s.sessions.DeleteExpired(ctx, time.Now())
	if err != nil {
		log.Printf("❌ Session cleanup failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("⏰ Deleted %d expired session(s)", n)
	}
}

// weeklyDigest enqueues a summary notification for every active user with
// released payouts in the last seven days.
func (s *SchedulerService) weeklyDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	users, err := s.users.FindAll(ctx)
	if err != nil {
		log.Printf("❌ Weekly digest failed to list users: %v", err)
		return
	}

	to := time.Now()
	from := to.AddDate(0, 0, -7)
	sent := 0
	for _, user := range users {
		if !user.IsActive {
			continue
		}
		earned, err := s.payouts.EarnedBetween(ctx, user.ID,
			from.Format("2006-01-02"), to.Format("2006-01-02"))
		if err != nil {
			log.Printf("⚠️ Weekly digest skipped %s: %v", user.ID, err)
			continue
		}
		if earned <= 0 {
			continue
		}
		if err := s.outbox.Enqueue(ctx, nil, events.WeeklyDigest, events.Payload{
			ObjectID:     user.ID,
			ObjectType:   "digest",
			RecipientIDs: []string{user.ID},
			Title:        "Your weekly earnings",
			Body:         fmt.Sprintf("You earned %.2f this week", earned),
			Link:         "/payouts",
		}); err != nil {
			log.Printf("⚠️ Weekly digest enqueue failed for %s: %v", user.ID, err)
			continue
		}
		sent++
	}
	log.Printf("📤 Weekly digest queued for %d user(s)", sent)
}
