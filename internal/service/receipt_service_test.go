package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/pkg/jobs"
	"github.com/noah-isme/school-fees-api/pkg/mailer"
	"github.com/noah-isme/school-fees-api/pkg/storage"
)

type mockSender struct {
	sent []mailer.Message
	err  error
}

func (m *mockSender) Send(msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func receiptFixtureJob() jobs.Job {
	return jobs.Job{
		ID:   "pay-1",
		Type: "receipt_email",
		Payload: receiptJob{
			Student: models.Student{
				ID:            "stu-1",
				FullName:      "Asha Rao",
				ClassName:     "class-3",
				GuardianName:  "R Rao",
				GuardianEmail: "rao@example.com",
			},
			Structure: models.FeeStructure{StudentID: "stu-1", Balance: 27500},
			Payment: models.FeePayment{
				ID:            "pay-1",
				StudentID:     "stu-1",
				Amount:        42500,
				Mode:          models.ModeCash,
				TransactionID: "CASH-AAAA1111",
				Date:          time.Now().UTC(),
			},
		},
	}
}

func TestReceiptEmailWithAttachmentAndLink(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewReceiptStore(dir)
	require.NoError(t, err)
	signer := storage.NewDownloadSigner("link-secret", time.Hour)
	sender := &mockSender{}
	svc := NewReceiptService(stubRenderer{}, sender, store, signer, zap.NewNop(), ReceiptServiceConfig{
		SchoolName:    "Sunrise Public School",
		PublicBaseURL: "https://fees.example.com/",
	})

	require.NoError(t, svc.handle(context.Background(), receiptFixtureJob()))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "rao@example.com", msg.To)
	assert.Contains(t, msg.Subject, "Asha Rao")
	assert.Contains(t, msg.HTMLBody, "42500")
	assert.Contains(t, msg.HTMLBody, "https://fees.example.com/receipts/download?token=")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)

	_, err = os.Stat(filepath.Join(dir, "stu-1", "pay-1.pdf"))
	assert.NoError(t, err)
}

func TestReceiptSkipsWithoutGuardianEmail(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewReceiptStore(dir)
	require.NoError(t, err)
	sender := &mockSender{}
	svc := NewReceiptService(stubRenderer{}, sender, store, nil, zap.NewNop(), ReceiptServiceConfig{})

	job := receiptFixtureJob()
	payload := job.Payload.(receiptJob)
	payload.Student.GuardianEmail = ""
	job.Payload = payload

	require.NoError(t, svc.handle(context.Background(), job))
	assert.Empty(t, sender.sent)

	// the archive copy is still written
	_, err = os.Stat(filepath.Join(dir, "stu-1", "pay-1.pdf"))
	assert.NoError(t, err)
}

func TestReceiptSendFailureIsRetryable(t *testing.T) {
	sender := &mockSender{err: errors.New("smtp unavailable")}
	svc := NewReceiptService(stubRenderer{}, sender, nil, nil, zap.NewNop(), ReceiptServiceConfig{})

	err := svc.handle(context.Background(), receiptFixtureJob())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pay-1")
}

func TestReceiptOmitsLinkWithoutBaseURL(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewReceiptStore(dir)
	require.NoError(t, err)
	sender := &mockSender{}
	svc := NewReceiptService(stubRenderer{}, sender, store, storage.NewDownloadSigner("link-secret", time.Hour), zap.NewNop(), ReceiptServiceConfig{})

	require.NoError(t, svc.handle(context.Background(), receiptFixtureJob()))
	require.Len(t, sender.sent, 1)
	assert.NotContains(t, sender.sent[0].HTMLBody, "download the receipt")
}
