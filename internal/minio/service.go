// Package minio archives uploaded import files in object storage.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/circuitbreak"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	prometheusCRM "git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/prometheus"
	"github.com/avast/retry-go"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

var ErrBucketNotFound = errors.New("minio bucket does not exist")

type MinioClient struct {
	Client         *minio.Client
	CircuitBreaker *gobreaker.CircuitBreaker[string]
	BucketName     string
	PathPrefix     string
}

func NewMinioClient() (*MinioClient, error) {
	endpointURL := config.Conf.MinioEndpointURL

	client, err := minio.New(endpointURL, &minio.Options{
		Creds:  credentials.NewStaticV4(config.Conf.MinioAccessKey, config.Conf.MinioSecretKey, ""),
		Secure: config.Conf.MinioSecure,
	})
	if err != nil {
		logging.Logger.Error("Failed to initialize MinIO client",
			zap.String("endpoint", endpointURL),
			zap.String("error", err.Error()),
		)

		return nil, err
	}

	logging.Logger.Info("Successfully connected to MinIO",
		zap.String("endpoint", endpointURL),
		zap.String("bucket", config.Conf.MinioBucketName),
	)

	return &MinioClient{
		Client:         client,
		CircuitBreaker: newCircuitBreaker(),
		BucketName:     config.Conf.MinioBucketName,
		PathPrefix:     config.Conf.MinioPathPrefix,
	}, nil
}

func newCircuitBreaker() *gobreaker.CircuitBreaker[string] {
	settings := gobreaker.Settings{
		Name:     circuitbreak.MinioService,
		Interval: time.Duration(config.Conf.MinioIntervalCB) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.Conf.MinioConsecutiveFailuresCB
		},
		OnStateChange: func(name string, fromState, toState gobreaker.State) {
			logging.Logger.Warn(
				"Circuit state changed",
				zap.String("service", name),
				zap.String("from", fromState.String()),
				zap.String("to", toState.String()),
			)

			if toState == gobreaker.StateOpen {
				circuitbreak.TriggerError(circuitbreak.MinioService)
			}
		},
	}

	return gobreaker.NewCircuitBreaker[string](settings)
}

// Upload stores data under objectKey, retrying with exponential backoff, and
// returns the object URL.
func (m *MinioClient) Upload(ctx context.Context, data []byte, objectKey, contentType string) (string, error) {
	logging.Logger.Info("Starting MinIO upload",
		zap.String("object_key", objectKey),
		zap.Int("size", len(data)),
	)

	return m.CircuitBreaker.Execute(func() (string, error) {
		return m.doUpload(ctx, data, objectKey, contentType)
	})
}

// Ping checks that the bucket is reachable.
func (m *MinioClient) Ping(ctx context.Context) error {
	timer := prometheus.NewTimer(prometheusCRM.MinioOperationDuration.WithLabelValues("ping"))
	defer timer.ObserveDuration()

	exists, err := m.Client.BucketExists(ctx, m.BucketName)
	if err != nil {
		return err
	}

	if !exists {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, m.BucketName)
	}

	return nil
}

func (m *MinioClient) doUpload(ctx context.Context, data []byte, objectKey, contentType string) (string, error) {
	timer := prometheus.NewTimer(prometheusCRM.MinioOperationDuration.WithLabelValues("upload"))
	defer timer.ObserveDuration()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, time.Duration(config.Conf.MinioTimeout)*time.Second)
	defer cancel()

	key := m.getKey(objectKey)

	err := retry.Do(
		func() error {
			_, err := m.Client.PutObject(
				ctxWithTimeout,
				m.BucketName,
				key,
				bytes.NewReader(data),
				int64(len(data)),
				minio.PutObjectOptions{ContentType: contentType},
			)
			if err != nil {
				logging.Logger.Error("MinIO upload failed",
					zap.String("object_key", key),
					zap.String("error", err.Error()),
				)
			}

			return err
		},
		retry.Attempts(config.Conf.MinioMaxRetryAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(time.Duration(config.Conf.MinioRetryBackoffMinSeconds)*time.Second),
		retry.MaxDelay(time.Duration(config.Conf.MinioRetryBackoffMaxSeconds)*time.Second),
	)
	if err != nil {
		logging.Logger.Error("MinIO upload failed after all retry attempts",
			zap.String("object_key", key),
			zap.String("error", err.Error()),
		)

		return "", err
	}

	url := m.generateURL(key)

	logging.Logger.Info("MinIO upload completed successfully",
		zap.String("object_key", key),
		zap.String("url", url),
	)

	return url, nil
}

func (m *MinioClient) generateURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", config.Conf.MinioEndpointURL, m.BucketName, key)
}

func (m *MinioClient) getKey(objectKey string) string {
	return path.Join(m.PathPrefix, objectKey)
}
