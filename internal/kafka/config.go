package kafka

import (
	"context"
	"sync"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

func newSaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_8_0_0
	cfg.ClientID = "telecrm"

	if config.Conf.KafkaSASLEnabled {
		cfg.Net.SASL.Enable = true
		cfg.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
		cfg.Net.SASL.User = config.Conf.KafkaUsername
		cfg.Net.SASL.Password = config.Conf.KafkaPassword
		cfg.Net.SASL.Handshake = true
		cfg.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
			return newSCRAMSHA512Client()
		}
	}

	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Group.ResetInvalidOffsets = true
	cfg.Consumer.Return.Errors = true

	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3

	return cfg
}

func mechanism() string {
	if config.Conf.KafkaSASLEnabled {
		return "SCRAM-SHA-512"
	}

	return "PLAINTEXT"
}

func createConsumerGroup(groupID, consumerName string) (sarama.ConsumerGroup, error) {
	client, err := sarama.NewConsumerGroup(
		[]string{config.Conf.KafkaBootstrapServer},
		groupID,
		newSaramaConfig(),
	)
	if err != nil {
		logging.Logger.Error("Failed to create Kafka consumer group",
			zap.String("consumer", consumerName),
			zap.String("bootstrap", config.Conf.KafkaBootstrapServer),
			zap.String("group_id", groupID),
			zap.String("error", err.Error()),
		)

		return nil, err
	}

	logging.Logger.Info("Successfully connected to Kafka",
		zap.String("consumer", consumerName),
		zap.String("bootstrap", config.Conf.KafkaBootstrapServer),
		zap.String("group_id", groupID),
		zap.String("mechanism", mechanism()),
	)

	return client, nil
}

// runConsumerLoop consumes until ctx is canceled, rejoining the group after
// every rebalance.
func runConsumerLoop(
	ctx context.Context,
	client sarama.ConsumerGroup,
	topic string,
	handler sarama.ConsumerGroupHandler,
	consumerName string,
) {
	var waitGroup sync.WaitGroup

	waitGroup.Add(1)

	go func() {
		defer waitGroup.Done()

		for {
			err := client.Consume(ctx, []string{topic}, handler)
			if err != nil {
				logging.Logger.Error("Kafka consume error",
					zap.String("consumer", consumerName),
					zap.String("error", err.Error()),
				)
			}

			if ctx.Err() != nil {
				logging.Logger.Info("Kafka consumer stopping",
					zap.String("consumer", consumerName),
					zap.String("reason", ctx.Err().Error()),
				)

				return
			}
		}
	}()

	go func() {
		for err := range client.Errors() {
			logging.Logger.Error("Kafka consumer internal error",
				zap.String("consumer", consumerName),
				zap.String("error", err.Error()),
			)
		}
	}()

	waitGroup.Wait()
}
