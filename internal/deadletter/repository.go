package deadletter

import (
	"context"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/database"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DeadLetterRepository struct {
	DBConn         *gorm.DB
	CircuitBreaker *gobreaker.CircuitBreaker[any]
	Now            func() time.Time
}

func NewRepository(dbConn *gorm.DB) *DeadLetterRepository {
	return &DeadLetterRepository{
		DBConn:         dbConn,
		CircuitBreaker: database.NewCircuitBreaker(),
		Now:            time.Now,
	}
}

// Upsert stores a failed lead, resetting an existing record with the same key
// back to pending.
func (dlRepository *DeadLetterRepository) Upsert(
	ctx context.Context,
	messageKey string,
	msg []byte,
	errMsg string,
) (*LeadCaptureDeadLetter, error) {
	return database.Execute(dlRepository.CircuitBreaker, func() (*LeadCaptureDeadLetter, error) {
		now := dlRepository.Now().UTC()
		dlLead := LeadCaptureDeadLetter{
			MessageKey:  messageKey,
			Msg:         msg,
			Error:       errMsg,
			Status:      StatusPending,
			LastRetryAt: &now,
		}

		var dbConn *gorm.DB

		// the consumer may be shutting down; the record must still be written
		select {
		case <-ctx.Done():
			dbConn = dlRepository.DBConn
		default:
			dbConn = dlRepository.DBConn.WithContext(ctx)
		}

		err := dbConn.Where("message_key = ?", messageKey).
			Assign(map[string]any{
				"msg":           msg,
				"error":         errMsg,
				"status":        StatusPending,
				"last_retry_at": &now,
			}).
			FirstOrCreate(&dlLead).Error
		if err != nil {
			logging.Logger.Error("[UpsertDeadLetter] Failed to store dead letter lead",
				zap.String("message_key", messageKey),
				zap.String("error", err.Error()),
			)

			return nil, err
		}

		return &dlLead, nil
	})
}

// GetPending returns pending leads whose last attempt is older than the retry
// delay and which still have retries left, oldest first.
func (dlRepository *DeadLetterRepository) GetPending(ctx context.Context) ([]LeadCaptureDeadLetter, error) {
	return database.Execute(dlRepository.CircuitBreaker, func() ([]LeadCaptureDeadLetter, error) {
		var records []LeadCaptureDeadLetter

		retryBefore := dlRepository.Now().UTC().Add(-time.Duration(config.Conf.DeadLetterLeadRetryDelay) * time.Minute)

		err := dlRepository.DBConn.WithContext(ctx).
			Where(
				"status = ? AND last_retry_at <= ? AND retry_count < ?",
				StatusPending,
				retryBefore,
				config.Conf.DeadLetterLeadMaxRetries,
			).
			Order("created_at ASC").
			Limit(config.Conf.DeadLetterLeadLimit).
			Find(&records).Error
		if err != nil {
			logging.Logger.Error("[GetPendingDeadLetters] Failed to fetch dead letter leads",
				zap.String("error", err.Error()),
			)
		}

		return records, err
	})
}

// Claim moves a pending record to in_progress. It reports false when another
// worker got there first.
func (dlRepository *DeadLetterRepository) Claim(ctx context.Context, dlLead *LeadCaptureDeadLetter) (bool, error) {
	return database.Execute(dlRepository.CircuitBreaker, func() (bool, error) {
		result := dlRepository.DBConn.WithContext(ctx).
			Model(&LeadCaptureDeadLetter{}).
			Where("message_key = ? AND status = ?", dlLead.MessageKey, StatusPending).
			Update("status", StatusInProgress)
		if result.Error != nil {
			return false, result.Error
		}

		return result.RowsAffected == 1, nil
	})
}

// ReleaseInProgress returns records left in_progress by a stopped worker to
// pending.
func (dlRepository *DeadLetterRepository) ReleaseInProgress(ctx context.Context) (int64, error) {
	return database.Execute(dlRepository.CircuitBreaker, func() (int64, error) {
		result := dlRepository.DBConn.WithContext(ctx).
			Model(&LeadCaptureDeadLetter{}).
			Where("status = ?", StatusInProgress).
			Update("status", StatusPending)

		return result.RowsAffected, result.Error
	})
}

func (dlRepository *DeadLetterRepository) IncreaseRetryCount(
	ctx context.Context,
	dlLead *LeadCaptureDeadLetter,
	errMsg string,
) error {
	return database.Run(dlRepository.CircuitBreaker, func() error {
		updates := map[string]any{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"last_retry_at": dlRepository.Now().UTC(),
			"status":        StatusPending,
			"error":         errMsg,
		}

		err := dlRepository.DBConn.WithContext(ctx).
			Model(&LeadCaptureDeadLetter{}).
			Where("message_key = ?", dlLead.MessageKey).
			Updates(updates).Error
		if err != nil {
			logging.Logger.Error("[IncreaseDeadLetterRetry] Failed to increase retry count",
				zap.String("message_key", dlLead.MessageKey),
				zap.String("error", err.Error()),
			)
		}

		return err
	})
}

func (dlRepository *DeadLetterRepository) Delete(ctx context.Context, dlLead *LeadCaptureDeadLetter) error {
	return database.Run(dlRepository.CircuitBreaker, func() error {
		return dlRepository.DBConn.WithContext(ctx).
			Where("message_key = ?", dlLead.MessageKey).
			Delete(&LeadCaptureDeadLetter{}).
			Error
	})
}

func (dlRepository *DeadLetterRepository) Get(ctx context.Context, messageKey string) (*LeadCaptureDeadLetter, error) {
	return database.Execute(dlRepository.CircuitBreaker, func() (*LeadCaptureDeadLetter, error) {
		var dlLead LeadCaptureDeadLetter

		err := dlRepository.DBConn.WithContext(ctx).
			Where("message_key = ?", messageKey).
			First(&dlLead).Error
		if err != nil {
			return nil, err
		}

		return &dlLead, nil
	})
}
