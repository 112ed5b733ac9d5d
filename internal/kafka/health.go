package kafka

import (
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/config"
	"github.com/IBM/sarama"
)

// Ping connects to the cluster and refreshes metadata for topics.
func Ping(topics ...string) error {
	client, err := sarama.NewClient([]string{config.Conf.KafkaBootstrapServer}, newSaramaConfig())
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	return client.RefreshMetadata(topics...)
}
