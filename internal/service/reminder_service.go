package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/repository"
	"github.com/noah-isme/school-fees-api/pkg/mailer"
)

type outstandingLister interface {
	ListOutstanding(ctx context.Context) ([]repository.OutstandingFee, error)
}

// ReminderServiceConfig tunes the scheduled fee reminder run.
type ReminderServiceConfig struct {
	Schedule   string
	DueDate    string
	SchoolName string
}

// ReminderService emails guardians of students with an open balance on a cron
// schedule. Send failures are logged per student and never abort the run.
type ReminderService struct {
	fees   outstandingLister
	sender mailer.Sender
	cron   *cron.Cron
	logger *zap.Logger
	config ReminderServiceConfig
}

// NewReminderService constructs a ReminderService.
func NewReminderService(fees outstandingLister, sender mailer.Sender, logger *zap.Logger, cfg ReminderServiceConfig) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 8 * * *"
	}
	return &ReminderService{
		fees:   fees,
		sender: sender,
		cron:   cron.New(),
		logger: logger,
		config: cfg,
	}
}

// Start registers the reminder job and starts the scheduler.
func (s *ReminderService) Start() error {
	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		s.Run(ctx)
	})
	if err != nil {
		return fmt.Errorf("register reminder schedule %q: %w", s.config.Schedule, err)
	}
	s.cron.Start()
	s.logger.Info("fee reminder scheduler started", zap.String("schedule", s.config.Schedule))
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *ReminderService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Run executes one reminder pass. Exposed so an operator can trigger it
// outside the schedule.
func (s *ReminderService) Run(ctx context.Context) {
	outstanding, err := s.fees.ListOutstanding(ctx)
	if err != nil {
		s.logger.Error("failed to list outstanding fees", zap.Error(err))
		return
	}

	var sent, skipped, failed int
	for _, entry := range outstanding {
		if entry.GuardianEmail == "" {
			skipped++
			continue
		}
		msg := mailer.Message{
			To:       entry.GuardianEmail,
			Subject:  fmt.Sprintf("%s: fee payment reminder for %s", s.config.SchoolName, entry.FullName),
			HTMLBody: s.reminderBody(entry),
		}
		if err := s.sender.Send(msg); err != nil {
			failed++
			s.logger.Warn("reminder email failed",
				zap.String("student_id", entry.StudentID),
				zap.Error(err),
			)
			continue
		}
		sent++
	}

	s.logger.Info("fee reminder run finished",
		zap.Int("outstanding", len(outstanding)),
		zap.Int("sent", sent),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
}

func (s *ReminderService) reminderBody(entry repository.OutstandingFee) string {
	due := s.config.DueDate
	if due == "" {
		due = "the end of this month"
	}
	guardian := entry.GuardianName
	if guardian == "" {
		guardian = "Guardian"
	}
	return fmt.Sprintf(`<p>Dear %s,</p>
<p>This is a reminder that a fee balance of <strong>Rs. %d</strong> is outstanding
for %s (%s). Kindly clear the dues by %s.</p>
<p>If the payment has already been made, please disregard this message.</p>
<p>Regards,<br>%s Accounts Office</p>`,
		guardian, entry.Balance, entry.FullName, entry.ClassName, due, s.config.SchoolName)
}
