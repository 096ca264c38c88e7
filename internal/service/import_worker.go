package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/escolare/portal-api/internal/dto"
	"github.com/escolare/portal-api/internal/models"
	"github.com/escolare/portal-api/pkg/config"
	"github.com/escolare/portal-api/pkg/jobs"
)

const importJobType = "student_import"

// importJobPayload carries a prepared run onto the worker queue.
type importJobPayload struct {
	Log     *models.ImportLog
	Records []dto.ImportRecord
}

// ImportWorker runs prepared import jobs on a background queue so the HTTP
// submission returns immediately with the log id. Within one job the run is
// still a single sequential pass; the queue only decouples it from the
// request cycle.
type ImportWorker struct {
	service *ImportService
	queue   *jobs.Queue
	logger  *zap.Logger
}

// NewImportWorker wires the import service into a job queue.
func NewImportWorker(service *ImportService, cfg config.ImportConfig, logger *zap.Logger) *ImportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &ImportWorker{service: service, logger: logger}
	w.queue = jobs.NewQueue(importJobType, w.handle, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		BufferSize: cfg.QueueBuffer,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return w
}

// Start launches queue workers.
func (w *ImportWorker) Start(ctx context.Context) {
	w.queue.Start(ctx)
}

// Stop drains the queue workers.
func (w *ImportWorker) Stop() {
	w.queue.Stop()
}

// Submit validates the request, creates the log row and enqueues the run.
// Fatal errors surface here, before anything is queued.
func (w *ImportWorker) Submit(ctx context.Context, req dto.ImportRequest) (*dto.QueuedImport, error) {
	log, err := w.service.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	job := jobs.Job{
		ID:      log.ID,
		Type:    importJobType,
		Payload: importJobPayload{Log: log, Records: req.Records},
	}
	if err := w.queue.Enqueue(job); err != nil {
		return nil, fmt.Errorf("enqueue import %s: %w", log.ID, err)
	}

	return &dto.QueuedImport{
		LogID:        log.ID,
		Status:       log.Status,
		TotalRecords: log.TotalRecords,
	}, nil
}

func (w *ImportWorker) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(importJobPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for job %s", job.Payload, job.ID)
	}

	result := w.service.Execute(ctx, payload.Log, payload.Records)
	w.logger.Sugar().Infow("import job finished",
		"log_id", result.LogID,
		"status", result.Status,
		"processed", result.Processed,
		"errors", result.ErrorCount)
	return nil
}
