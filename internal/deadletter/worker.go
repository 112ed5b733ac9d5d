package deadletter

import (
	"context"
	"sync"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

type DeadLetterWorker struct {
	WorkerPool *ants.Pool
	DLService  *DeadLetterService
}

func NewWorker(dlService *DeadLetterService) (*DeadLetterWorker, error) {
	workerPool, err := ants.NewPool(config.Conf.DeadLetterPoolSize, ants.WithPreAlloc(true))
	if err != nil {
		return nil, err
	}

	return &DeadLetterWorker{
		WorkerPool: workerPool,
		DLService:  dlService,
	}, nil
}

func (dlWorker *DeadLetterWorker) Run(ctx context.Context) {
	released, err := dlWorker.DLService.DLRepository.ReleaseInProgress(ctx)
	if err == nil && released > 0 {
		logging.Logger.Info("Released dead letter leads left in progress", zap.Int64("count", released))
	}

	ticker := time.NewTicker(time.Duration(config.Conf.DeadLetterLeadInterval) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			dlWorker.WorkerPool.Release()
			return
		case <-ticker.C:
			dlWorker.ProcessPending(ctx)
		}
	}
}

// ProcessPending retries every due dead letter lead on the pool and waits for
// the batch to finish.
func (dlWorker *DeadLetterWorker) ProcessPending(ctx context.Context) {
	dlLeads, err := dlWorker.DLService.DLRepository.GetPending(ctx)
	if err != nil {
		return
	}

	if len(dlLeads) == 0 {
		logging.Logger.Debug("No dead letter leads to process")
		return
	}

	logging.Logger.Info("Start processing dead letter leads", zap.Int("count", len(dlLeads)))

	var wg sync.WaitGroup

	for idx := range dlLeads {
		dlLead := &dlLeads[idx]

		wg.Add(1)

		err := dlWorker.WorkerPool.Submit(func() {
			defer wg.Done()
			dlWorker.DLService.ProcessDeadLetterLead(ctx, dlLead)
		})
		if err != nil {
			wg.Done()
			logging.Logger.Error("[ProcessPendingDeadLetters] Failed to submit to worker pool",
				zap.String("message_key", dlLead.MessageKey),
				zap.String("error", err.Error()),
			)
		}
	}

	wg.Wait()
}
