package kafka

import (
	"context"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

const leadConsumerName = "LeadCapture"

type MessageHandler func(context.Context, *sarama.ConsumerMessage)

// LeadConsumer reads captured leads from the lead topic.
type LeadConsumer struct {
	Client sarama.ConsumerGroup
}

func NewLeadConsumer() (*LeadConsumer, error) {
	client, err := createConsumerGroup(config.Conf.KafkaLeadGroupID, leadConsumerName)
	if err != nil {
		return nil, err
	}

	return &LeadConsumer{Client: client}, nil
}

// Consume blocks until ctx is canceled, handing every message to messageHandler.
func (c *LeadConsumer) Consume(ctx context.Context, messageHandler MessageHandler) {
	runConsumerLoop(ctx, c.Client, config.Conf.KafkaLeadTopic, &groupHandler{messageHandler: messageHandler}, leadConsumerName)
}

func (c *LeadConsumer) Close() error {
	err := c.Client.Close()
	if err != nil {
		logging.Logger.Error("Failed to close Kafka lead consumer", zap.String("error", err.Error()))
		return err
	}

	logging.Logger.Info("Kafka lead consumer closed successfully")

	return nil
}

type groupHandler struct {
	messageHandler MessageHandler
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}

			h.messageHandler(session.Context(), message)

			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}
