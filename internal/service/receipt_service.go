package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/pkg/jobs"
	"github.com/noah-isme/school-fees-api/pkg/mailer"
	"github.com/noah-isme/school-fees-api/pkg/receipt"
	"github.com/noah-isme/school-fees-api/pkg/storage"
)

// receiptJob carries a committed payment to the background mail worker.
type receiptJob struct {
	Student   models.Student
	Structure models.FeeStructure
	Payment   models.FeePayment
}

// ReceiptServiceConfig tunes the receipt dispatch queue.
type ReceiptServiceConfig struct {
	Workers       int
	MaxRetries    int
	SchoolName    string
	PublicBaseURL string
}

// ReceiptService emails PDF receipts for recorded payments and archives a
// copy for signed-link download. Dispatch happens strictly after the payment
// is durable: a failed render or send is logged and retried by the queue but
// never unwinds the payment.
type ReceiptService struct {
	renderer receiptRenderer
	sender   mailer.Sender
	store    *storage.ReceiptStore
	signer   *storage.DownloadSigner
	logger   *zap.Logger
	config   ReceiptServiceConfig
	queue    *jobs.Queue
}

// NewReceiptService constructs the dispatcher. Store and signer are optional;
// without them receipts are attached to the email only. Call Start before
// recording payments and Stop on shutdown.
func NewReceiptService(renderer receiptRenderer, sender mailer.Sender, store *storage.ReceiptStore, signer *storage.DownloadSigner, logger *zap.Logger, cfg ReceiptServiceConfig) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReceiptService{
		renderer: renderer,
		sender:   sender,
		store:    store,
		signer:   signer,
		logger:   logger,
		config:   cfg,
	}
	s.queue = jobs.NewQueue("receipts", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers.
func (s *ReceiptService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *ReceiptService) Stop() {
	s.queue.Stop()
}

// PaymentRecorded enqueues receipt delivery for a committed payment.
func (s *ReceiptService) PaymentRecorded(student models.Student, structure models.FeeStructure, payment models.FeePayment) {
	job := jobs.Job{
		ID:      payment.ID,
		Type:    "receipt_email",
		Payload: receiptJob{Student: student, Structure: structure, Payment: payment},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Error("failed to enqueue receipt email",
			zap.String("payment_id", payment.ID),
			zap.Error(err),
		)
	}
}

func (s *ReceiptService) handle(_ context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(receiptJob)
	if !ok {
		s.logger.Error("unexpected receipt job payload", zap.String("job_id", job.ID))
		return nil
	}

	pdf, err := s.renderer.Render(receipt.Data{
		SchoolName:    s.config.SchoolName,
		StudentName:   payload.Student.FullName,
		ClassName:     payload.Student.ClassName,
		TransactionID: payload.Payment.TransactionID,
		Mode:          string(payload.Payment.Mode),
		Date:          payload.Payment.Date,
		Amount:        payload.Payment.Amount,
		Balance:       payload.Structure.Balance,
		Breakdown:     payload.Payment.Breakdown,
	})
	if err != nil {
		return fmt.Errorf("render receipt for payment %s: %w", payload.Payment.ID, err)
	}

	downloadLink := s.archive(payload, pdf)

	if payload.Student.GuardianEmail == "" {
		s.logger.Info("no guardian email on file, skipping receipt email",
			zap.String("student_id", payload.Student.ID),
			zap.String("payment_id", payload.Payment.ID),
		)
		return nil
	}

	var body strings.Builder
	fmt.Fprintf(&body,
		"<p>Dear %s,</p><p>We have received a payment of Rs. %d towards %s's school fees (transaction %s). The outstanding balance is Rs. %d.</p><p>The receipt is attached.</p>",
		payload.Student.GuardianName,
		payload.Payment.Amount,
		payload.Student.FullName,
		payload.Payment.TransactionID,
		payload.Structure.Balance,
	)
	if downloadLink != "" {
		fmt.Fprintf(&body, `<p>You can also <a href="%s">download the receipt</a> at any time.</p>`, downloadLink)
	}

	msg := mailer.Message{
		To:       payload.Student.GuardianEmail,
		Subject:  fmt.Sprintf("Fee payment receipt - %s", payload.Student.FullName),
		HTMLBody: body.String(),
		Attachments: []mailer.Attachment{{
			Filename:    fmt.Sprintf("receipt-%s.pdf", payload.Payment.TransactionID),
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	}
	if err := s.sender.Send(msg); err != nil {
		return fmt.Errorf("send receipt for payment %s: %w", payload.Payment.ID, err)
	}

	s.logger.Info("receipt emailed",
		zap.String("student_id", payload.Student.ID),
		zap.String("payment_id", payload.Payment.ID),
	)
	return nil
}

// archive stores the PDF and returns a signed download link, or "" when the
// archive is not configured. Archive failures are logged, not retried; the
// attachment still reaches the guardian.
func (s *ReceiptService) archive(payload receiptJob, pdf []byte) string {
	if s.store == nil {
		return ""
	}
	filename := fmt.Sprintf("%s/%s.pdf", payload.Student.ID, payload.Payment.ID)
	if _, err := s.store.Save(filename, pdf); err != nil {
		s.logger.Warn("failed to archive receipt",
			zap.String("payment_id", payload.Payment.ID),
			zap.Error(err),
		)
		return ""
	}
	if s.signer == nil || s.config.PublicBaseURL == "" {
		return ""
	}
	token, _, err := s.signer.Generate(payload.Payment.ID, filename)
	if err != nil {
		s.logger.Warn("failed to sign receipt link",
			zap.String("payment_id", payload.Payment.ID),
			zap.Error(err),
		)
		return ""
	}
	return fmt.Sprintf("%s/receipts/download?token=%s", strings.TrimRight(s.config.PublicBaseURL, "/"), token)
}
