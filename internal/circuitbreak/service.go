package circuitbreak

import (
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"go.uber.org/zap"
)

// CircuitBreakChan carries the name of every dependency whose breaker opened.
var CircuitBreakChan chan string

const (
	DBService            = "database"
	MinioService         = "minio"
	KafkaProducerService = "kafka_producer"
	RedisService         = "redis"
)

const chanBuffer = 16

func Init() {
	CircuitBreakChan = make(chan string, chanBuffer)
}

// TriggerError reports an opened breaker without blocking the caller.
func TriggerError(service string) {
	if CircuitBreakChan == nil {
		logging.Logger.Warn("circuit break channel is not initialized", zap.String("service", service))
		return
	}

	select {
	case CircuitBreakChan <- service:
	default:
		logging.Logger.Warn("circuit break channel is full, dropping signal", zap.String("service", service))
	}
}
