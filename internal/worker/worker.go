// Package worker drains the transcription job queue at bounded
// concurrency and runs each job through the processing pipeline.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BurahnFakhri/audioTranscribe/internal/domain"
	"github.com/BurahnFakhri/audioTranscribe/internal/pipeline"
	"github.com/BurahnFakhri/audioTranscribe/internal/queue"
	"github.com/google/uuid"
)

// Processor runs one transcription attempt. Satisfied by
// *pipeline.Processor.
type Processor interface {
	Process(ctx context.Context, recordID, audioURL string, opts pipeline.ProcessOptions) (*domain.TranscriptionRecord, error)
}

// Config holds worker configuration.
type Config struct {
	Logger          *slog.Logger
	Queue           queue.Queue
	Processor       Processor
	Nudges          NudgeSource // optional, reduces dispatch latency
	Concurrency     int         // global in-flight ceiling
	TypeConcurrency int         // ceiling for this pipeline's job type
	PollInterval    time.Duration
	JobTimeout      time.Duration
}

// Worker polls the queue on a fixed interval, claims due jobs, and
// executes them concurrently. It is stateless between polls: all
// scheduling state lives in the queue, all record state in the store.
type Worker struct {
	logger       *slog.Logger
	queue        queue.Queue
	processor    Processor
	nudges       NudgeSource
	pollInterval time.Duration
	jobTimeout   time.Duration
	workerID     string

	sem     chan struct{} // global slots
	typeSem chan struct{} // per-job-type slots

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	pollNow  chan struct{}
}

// NewWorker creates a worker instance. Zero config values get the
// documented defaults: concurrency 5, type concurrency 2, 5s poll
// interval, 30m job timeout.
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	typeConcurrency := cfg.TypeConcurrency
	if typeConcurrency <= 0 {
		typeConcurrency = 2
	}
	if typeConcurrency > concurrency {
		typeConcurrency = concurrency
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	jobTimeout := cfg.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Minute
	}

	return &Worker{
		logger:       cfg.Logger,
		queue:        cfg.Queue,
		processor:    cfg.Processor,
		nudges:       cfg.Nudges,
		pollInterval: pollInterval,
		jobTimeout:   jobTimeout,
		workerID:     "worker-" + uuid.New().String()[:8],
		sem:          make(chan struct{}, concurrency),
		typeSem:      make(chan struct{}, typeConcurrency),
		stopChan:     make(chan struct{}),
		pollNow:      make(chan struct{}, 1),
	}
}

// Start runs the acceptance loop until the context is canceled or Stop is
// called. Job bodies run on independent slots, so blocking I/O inside a
// job never stalls the loop itself.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", cap(w.sem)),
		slog.Int("type_concurrency", cap(w.typeSem)),
		slog.Duration("poll_interval", w.pollInterval),
	)

	if w.nudges != nil {
		if err := w.startNudgeConsumer(ctx); err != nil {
			w.logger.Warn("Nudge consumer unavailable, relying on polling alone",
				slog.Any("error", err),
			)
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Drain anything already due before the first tick.
	w.pollAndDispatch(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker context canceled, stopping...")
			return nil

		case <-w.stopChan:
			return nil

		case <-ticker.C:
			w.pollAndDispatch(ctx)

		case <-w.pollNow:
			w.pollAndDispatch(ctx)
		}
	}
}

// Stop signals the loop to exit and waits for in-flight jobs to finish.
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}

// freeSlots reports how many jobs could be started right now.
func (w *Worker) freeSlots() int {
	free := cap(w.sem) - len(w.sem)
	typeFree := cap(w.typeSem) - len(w.typeSem)
	if typeFree < free {
		free = typeFree
	}
	return free
}

// pollAndDispatch claims up to freeSlots due jobs and runs each on its
// own goroutine.
func (w *Worker) pollAndDispatch(ctx context.Context) {
	limit := w.freeSlots()
	if limit == 0 {
		return
	}

	jobs, err := w.queue.Poll(ctx, w.workerID, limit)
	if err != nil {
		w.logger.Error("Failed to poll job queue",
			slog.Any("error", err),
		)
		return
	}

	for _, job := range jobs {
		w.sem <- struct{}{}
		w.typeSem <- struct{}{}
		w.wg.Add(1)

		go func(job *queue.Job) {
			defer func() {
				<-w.typeSem
				<-w.sem
				w.wg.Done()
			}()
			w.runJob(ctx, job)
		}(job)
	}
}

// runJob executes one claimed job and reports the outcome back to the
// queue. The timeout keeps the pipeline well inside the job's lock
// lifetime so an expired lock cannot race a still-running duplicate.
func (w *Worker) runJob(ctx context.Context, job *queue.Job) {
	w.logger.Info("Processing job",
		slog.String("worker_id", w.workerID),
		slog.String("job_id", job.ID),
		slog.String("record_id", job.Payload.RecordID),
		slog.Int("attempt", job.Attempts+1),
	)

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	_, err := w.processor.Process(jobCtx, job.Payload.RecordID, job.Payload.AudioURL, pipeline.ProcessOptions{})
	if err != nil {
		w.logger.Error("Job processing failed",
			slog.String("job_id", job.ID),
			slog.String("record_id", job.Payload.RecordID),
			slog.Any("error", err),
		)

		if failErr := w.queue.Fail(ctx, job, err); failErr != nil {
			w.logger.Error("Failed to report job failure to queue",
				slog.String("job_id", job.ID),
				slog.Any("error", failErr),
			)
		}
		return
	}

	if err := w.queue.Complete(ctx, job.ID); err != nil {
		// The record is already completed; the pipeline's idempotency
		// check makes the inevitable redelivery a no-op.
		w.logger.Error("Failed to remove completed job from queue",
			slog.String("job_id", job.ID),
			slog.Any("error", err),
		)
		return
	}

	w.logger.Info("Job completed successfully",
		slog.String("job_id", job.ID),
		slog.String("record_id", job.Payload.RecordID),
	)
}
