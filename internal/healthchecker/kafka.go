package healthchecker

import (
	"context"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/kafka"
)

func CheckKafkaProducer() Check {
	return func(context.Context) error {
		return kafka.Ping(config.Conf.KafkaEventTopic)
	}
}
