package deadletter

import (
	"context"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	resultSucceeded = "succeeded"
	resultFailed    = "failed"
)

// LeadProcessor turns a raw lead message into an enquiry.
type LeadProcessor interface {
	ProcessLead(ctx context.Context, msg []byte) error
}

type DeadLetterService struct {
	DLRepository  *DeadLetterRepository
	LeadProcessor LeadProcessor
}

func NewService(dbConn *gorm.DB, leadProcessor LeadProcessor) *DeadLetterService {
	return &DeadLetterService{
		DLRepository:  NewRepository(dbConn),
		LeadProcessor: leadProcessor,
	}
}

func (dlService *DeadLetterService) MarkLead(ctx context.Context, messageKey string, msg []byte, errMsg string) error {
	_, err := dlService.DLRepository.Upsert(ctx, messageKey, msg, errMsg)
	if err != nil {
		return err
	}

	logging.Logger.Info("Lead marked as dead letter", zap.String("message_key", messageKey))

	return nil
}

// ProcessDeadLetterLead retries one stored lead. Success deletes the record;
// failure puts it back to pending with one more retry counted.
func (dlService *DeadLetterService) ProcessDeadLetterLead(ctx context.Context, dlLead *LeadCaptureDeadLetter) {
	claimed, err := dlService.DLRepository.Claim(ctx, dlLead)
	if err != nil {
		logging.Logger.Error("[ProcessDeadLetterLead] Failed to claim dead letter lead",
			zap.String("message_key", dlLead.MessageKey),
			zap.String("error", err.Error()),
		)

		return
	}

	if !claimed {
		return
	}

	err = dlService.LeadProcessor.ProcessLead(ctx, dlLead.Msg)
	if err != nil {
		prometheus.DeadLetterRetries.WithLabelValues(resultFailed).Inc()
		logging.Logger.Error("[ProcessDeadLetterLead] Failed to reprocess lead",
			zap.String("message_key", dlLead.MessageKey),
			zap.Int("retry_count", dlLead.RetryCount+1),
			zap.String("error", err.Error()),
		)

		_ = dlService.DLRepository.IncreaseRetryCount(ctx, dlLead, err.Error())

		return
	}

	prometheus.DeadLetterRetries.WithLabelValues(resultSucceeded).Inc()
	logging.Logger.Info("Dead letter lead processed successfully", zap.String("message_key", dlLead.MessageKey))

	err = dlService.DLRepository.Delete(ctx, dlLead)
	if err != nil {
		logging.Logger.Error("[ProcessDeadLetterLead] Failed to delete processed lead",
			zap.String("message_key", dlLead.MessageKey),
			zap.String("error", err.Error()),
		)
	}
}
