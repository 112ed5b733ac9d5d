// Package crm wires the HTTP API, the lead consumer and the background
// workers into one application.
package crm

import (
	"context"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/account"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/api"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/branch"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/callregister"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/catalog"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/circuitbreak"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/database"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/deadletter"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/events"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/healthchecker"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/kafka"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/leadcapture"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/leadimport"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/minio"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/prometheus"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/reminder"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/report"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/telecaller"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const eventDrainTimeout = 10 * time.Second

type CRM struct {
	DBConn               *gorm.DB
	MinioClient          *minio.MinioClient
	KafkaProducer        *kafka.Producer
	LeadConsumer         *kafka.LeadConsumer
	EventPublisher       *events.KafkaPublisher
	Blacklist            *account.TokenBlacklist
	WorkerPool           *ants.Pool
	LeadCaptureService   *leadcapture.LeadCaptureService
	DeadLetterService    *deadletter.DeadLetterService
	DeadLetterWorker     *deadletter.DeadLetterWorker
	HealthCheckerService *healthchecker.Healthchecker
	Server               *api.Server
}

func NewApp(ctx context.Context) (*CRM, error) {
	logging.Logger.Info("[NewApp] Initializing CRM application...")

	circuitbreak.Init()

	dbConn, err := database.NewDatabase()
	if err != nil {
		logging.Logger.Error("[NewApp] Failed to initialize database", zap.Error(err))
		return nil, err
	}

	logging.Logger.Info("[NewApp] Database connection established")

	app := &CRM{DBConn: dbConn}
	checks := map[string]healthchecker.Check{
		circuitbreak.DBService: healthchecker.CheckDB(dbConn),
	}

	var archiver leadimport.Archiver

	if config.Conf.MinioEnabled {
		app.MinioClient, err = minio.NewMinioClient()
		if err != nil {
			logging.Logger.Error("[NewApp] Failed to initialize Minio client", zap.Error(err))
			return nil, err
		}

		archiver = app.MinioClient
		checks[circuitbreak.MinioService] = healthchecker.CheckPing(app.MinioClient)

		logging.Logger.Info("[NewApp] Minio client created")
	}

	if config.Conf.RedisURL != "" {
		app.Blacklist, err = account.NewTokenBlacklist(config.Conf.RedisURL)
		if err != nil {
			logging.Logger.Error("[NewApp] Failed to initialize redis client", zap.Error(err))
			return nil, err
		}

		checks[circuitbreak.RedisService] = healthchecker.CheckPing(app.Blacklist)

		logging.Logger.Info("[NewApp] Token blacklist created")
	}

	var publisher events.Publisher = events.Nop{}

	if config.Conf.KafkaEnabled {
		err = app.initializeKafka()
		if err != nil {
			return nil, err
		}

		publisher = app.EventPublisher
		checks[circuitbreak.KafkaProducerService] = healthchecker.CheckKafkaProducer()
	}

	tokenIssuer := account.NewTokenIssuer(
		config.Conf.JWTSecret,
		time.Duration(config.Conf.JWTAccessTTLMin)*time.Minute,
		time.Duration(config.Conf.JWTRefreshTTLHours)*time.Hour,
	)

	accountService := account.NewService(dbConn, tokenIssuer, app.Blacklist)

	err = accountService.AccountRepository.SeedRoles(ctx)
	if err != nil {
		return nil, err
	}

	app.LeadCaptureService = leadcapture.NewService(dbConn, publisher)
	app.DeadLetterService = deadletter.NewService(dbConn, app.LeadCaptureService)

	app.DeadLetterWorker, err = deadletter.NewWorker(app.DeadLetterService)
	if err != nil {
		logging.Logger.Error("[NewApp] Failed to create dead letter worker", zap.Error(err))
		return nil, err
	}

	app.HealthCheckerService = healthchecker.NewService(checks)

	app.Server = api.NewServer(&api.Server{
		Accounts:    accountService,
		Telecallers: telecaller.NewService(dbConn, accountService),
		Branches:    branch.NewService(dbConn),
		Catalog:     catalog.NewService(dbConn),
		Enquiries:   enquiry.NewService(dbConn),
		Calls:       callregister.NewService(dbConn, publisher),
		Reports:     report.NewService(dbConn),
		Reminders:   reminder.NewService(dbConn),
		Imports:     leadimport.NewService(dbConn, archiver, publisher),
		Health:      app.HealthCheckerService,
	})

	logging.Logger.Info("[NewApp] CRM application initialized")

	return app, nil
}

func (app *CRM) initializeKafka() error {
	logging.Logger.Info("[NewApp] Creating Kafka producer...")

	var err error

	app.KafkaProducer, err = kafka.NewProducer()
	if err != nil {
		logging.Logger.Error("[NewApp] Failed to create Kafka producer", zap.Error(err))
		return err
	}

	app.EventPublisher, err = events.NewKafkaPublisher(
		app.KafkaProducer,
		config.Conf.KafkaEventTopic,
		config.Conf.EventPoolSize,
	)
	if err != nil {
		logging.Logger.Error("[NewApp] Failed to create event publisher", zap.Error(err))
		return err
	}

	app.LeadConsumer, err = kafka.NewLeadConsumer()
	if err != nil {
		logging.Logger.Error("[NewApp] Failed to create Kafka lead consumer", zap.Error(err))
		return err
	}

	logging.Logger.Info("[NewApp] Creating worker pool", zap.Int("pool_size", config.Conf.PoolSize))

	app.WorkerPool, err = ants.NewPool(config.Conf.PoolSize, ants.WithPreAlloc(true))
	if err != nil {
		logging.Logger.Error("[NewApp] Failed to create worker pool", zap.Error(err))
		return err
	}

	return nil
}

// Run blocks until ctx is canceled or one component fails, then shuts the
// rest down.
func (app *CRM) Run(ctx context.Context) error {
	logging.Logger.Info("[Run] Starting app goroutines...")

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return app.Server.Run(groupCtx)
	})

	group.Go(func() error {
		prometheus.Run(groupCtx)
		return nil
	})

	group.Go(func() error {
		app.HealthCheckerService.Monitor(groupCtx)
		return nil
	})

	group.Go(func() error {
		app.DeadLetterWorker.Run(groupCtx)
		return nil
	})

	if app.LeadConsumer != nil {
		group.Go(func() error {
			logging.Logger.Info("[Run] Starting Kafka lead consumer",
				zap.String("topic", config.Conf.KafkaLeadTopic),
				zap.Int("worker_pool_size", config.Conf.PoolSize),
			)

			app.LeadConsumer.Consume(groupCtx, app.MessageHandler)

			return nil
		})
	}

	err := group.Wait()

	app.shutdown()

	return err
}

func (app *CRM) shutdown() {
	if app.LeadConsumer != nil {
		_ = app.LeadConsumer.Close()
	}

	if app.WorkerPool != nil {
		logging.Logger.Info("[Run] Releasing worker pool...",
			zap.Int("running_workers", app.WorkerPool.Running()),
			zap.Int("free_workers", app.WorkerPool.Free()),
		)
		app.WorkerPool.Release()
	}

	if app.EventPublisher != nil {
		app.EventPublisher.Close(eventDrainTimeout)
	}

	if app.KafkaProducer != nil {
		err := app.KafkaProducer.Close()
		if err != nil {
			logging.Logger.Error("[Run] Failed to close producer", zap.String("error", err.Error()))
		}
	}

	err := app.Blacklist.Close()
	if err != nil {
		logging.Logger.Error("[Run] Failed to close redis client", zap.String("error", err.Error()))
	}

	sqlDB, err := app.DBConn.DB()
	if err == nil {
		_ = sqlDB.Close()
	}

	logging.Logger.Info("[Run] ===== App shutdown complete =====")
}
