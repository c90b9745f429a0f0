// ABOUTME: Cron-driven scheduler that runs full sync passes for configured users
// ABOUTME: Wraps robfig/cron with overlap protection per job
package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// cronParser accepts standard 5-field expressions, optional seconds and descriptors like @hourly.
var cronParser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// ParseSchedule validates a cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("schedule is required")
	}
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return sched, nil
}

// Runner is the part of Engine the scheduler needs.
type Runner interface {
	RunAll(ctx context.Context, userID uuid.UUID) Report
}

// Scheduler triggers RunAll for each user on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	users  []uuid.UUID
	log    zerolog.Logger

	// OnReport, when set, receives every completed report.
	OnReport func(Report)
}

// NewScheduler creates a scheduler that syncs users on expr.
func NewScheduler(expr string, runner Runner, users []uuid.UUID, log zerolog.Logger) (*Scheduler, error) {
	sched, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithParser(cronParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		runner: runner,
		users:  users,
		log:    log,
	}
	s.cron.Schedule(sched, cron.FuncJob(s.tick))
	return s, nil
}

func (s *Scheduler) tick() {
	for _, userID := range s.users {
		report := s.runner.RunAll(context.Background(), userID)
		s.log.Info().
			Str("user_id", userID.String()).
			Int("failed", len(report.Failed())).
			Msg("scheduled sync finished")
		if s.OnReport != nil {
			s.OnReport(report)
		}
	}
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running pass to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunNow runs one tick synchronously.
func (s *Scheduler) RunNow() {
	s.tick()
}
