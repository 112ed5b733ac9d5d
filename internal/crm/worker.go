package crm

import (
	"context"
	"fmt"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/leadcapture"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	crmPrometheus "git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/prometheus"
	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// MessageHandler hands a lead message to the worker pool. Messages the pool
// cannot take are parked as dead letters.
func (app *CRM) MessageHandler(ctx context.Context, msg *sarama.ConsumerMessage) {
	err := app.WorkerPool.Submit(func() {
		app.processLead(ctx, msg)
	})
	if err != nil {
		logging.Logger.Error("failed to submit lead to ants pool", zap.String("error", err.Error()))

		_ = app.DeadLetterService.MarkLead(ctx, messageKey(msg), msg.Value, err.Error())
	}
}

func (app *CRM) processLead(ctx context.Context, msg *sarama.ConsumerMessage) {
	start := time.Now()
	result := resultFailure

	defer func() {
		duration := time.Since(start)
		crmPrometheus.ProcessLeadDuration.WithLabelValues(result).Observe(duration.Seconds())
		logging.Logger.Debug("Process lead duration",
			zap.String("result", result),
			zap.Duration("duration", duration),
		)
	}()

	recordKafkaLatency(msg.Value)

	defer app.handlePanic(ctx, msg)

	err := app.LeadCaptureService.ProcessLead(ctx, msg.Value)
	if err != nil {
		logging.Logger.Error("failed to process lead message",
			zap.String("error", err.Error()),
			zap.String("message_key", messageKey(msg)),
			zap.ByteString("msg_value", msg.Value),
		)

		_ = app.DeadLetterService.MarkLead(ctx, messageKey(msg), msg.Value, err.Error())

		return
	}

	result = resultSuccess

	logging.Logger.Info("lead processed successfully",
		zap.String("message_key", messageKey(msg)),
		zap.Int32("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)
}

// messageKey identifies a lead by its position in the topic, which stays
// stable across redeliveries.
func messageKey(msg *sarama.ConsumerMessage) string {
	return fmt.Sprintf("%s-%d-%d", msg.Topic, msg.Partition, msg.Offset)
}

func recordKafkaLatency(value []byte) {
	lead, err := leadcapture.Decode(value)
	if err != nil {
		return
	}

	capturedAt, ok := lead.CapturedTime()
	if !ok {
		return
	}

	latency := time.Since(capturedAt).Seconds()
	crmPrometheus.KafkaMessageLatency.Observe(latency)
	logging.Logger.Debug("Kafka message latency", zap.Float64("latency", latency))
}

func (app *CRM) handlePanic(ctx context.Context, msg *sarama.ConsumerMessage) {
	if r := recover(); r != nil {
		logging.Logger.Error("panic in lead worker", zap.Any("recover", r))

		_ = app.DeadLetterService.MarkLead(ctx, messageKey(msg), msg.Value, fmt.Sprint("panic: ", r))
	}
}
