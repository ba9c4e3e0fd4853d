package remover

import (
	"context"
	"fmt"
	"sync"
	"time"

	errs "tweetpruner/pkg/errors"
	"tweetpruner/pkg/logger"
	"tweetpruner/pkg/retry"
)

// Kind names the collection a job removes from
type Kind string

const (
	KindPost Kind = "post"
	KindLike Kind = "like"
)

// Job is one delete or unlike
type Job struct {
	Kind Kind
	ID   int64
}

// Status is how a job ended
type Status int

const (
	// Removed means the remote call succeeded
	Removed Status = iota
	// AlreadyGone means the remote reported the item missing
	AlreadyGone
	// Failed means the call exhausted its retries or hit a fatal error
	Failed
)

func (s Status) String() string {
	switch s {
	case Removed:
		return "removed"
	case AlreadyGone:
		return "already_gone"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result represents the result of a removal job
type Result struct {
	Job      Job
	Status   Status
	Error    error
	Duration time.Duration
}

// Remover is the remote side of a removal
type Remover interface {
	DeletePost(ctx context.Context, id int64) error
	UnlikePost(ctx context.Context, id int64) error
}

// WorkerPool runs retry-wrapped removals concurrently. Each job is retried
// on its own; one job failing never stops the others.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	remover     Remover
	retrier     *retry.Retrier
	logger      logger.Logger
}

// NewWorkerPool creates a pool bound to ctx. Cancelling ctx stops workers
// after their current job.
func NewWorkerPool(
	ctx context.Context,
	numWorkers int,
	remover Remover,
	retrier *retry.Retrier,
	log logger.Logger,
) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if retrier == nil {
		retrier = retry.NewRetrier(nil)
	}
	if log == nil {
		log = logger.GetLogger()
	}

	poolCtx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         poolCtx,
		cancel:      cancel,
		remover:     remover,
		retrier:     retrier.WithContext(poolCtx),
		logger:      log.WithField("component", "remover"),
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	logger.LogComponentStart(wp.logger, "remover", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for in-flight jobs and closes Results
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	logger.LogComponentStop(wp.logger, "remover", "queue drained")
}

// Submit queues a job, blocking while the queue is full
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results streams one Result per processed job until Stop
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		if wp.ctx.Err() != nil {
			return
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	start := time.Now()

	var op retry.Operation
	switch job.Kind {
	case KindPost:
		op = func() error { return wp.remover.DeletePost(wp.ctx, job.ID) }
	case KindLike:
		op = func() error { return wp.remover.UnlikePost(wp.ctx, job.ID) }
	default:
		return Result{Job: job, Status: Failed, Error: fmt.Errorf("unknown job kind %q", job.Kind)}
	}

	outcome, err := wp.retrier.WithLabel(fmt.Sprintf("remove %s %d", job.Kind, job.ID)).Do(op)

	result := Result{Job: job, Duration: time.Since(start)}
	switch {
	case err == nil && outcome == retry.Aborted:
		result.Status = AlreadyGone
	case err == nil:
		result.Status = Removed
	case errs.IsNotFound(err):
		// the last attempt is unguarded, but a missing item is still gone
		result.Status = AlreadyGone
	default:
		result.Status = Failed
		result.Error = fmt.Errorf("%s %d: %w", job.Kind, job.ID, err)
	}

	log := wp.logger.WithFields(map[string]interface{}{
		"worker_id": workerID,
		"duration":  result.Duration,
	})
	logger.LogRemoval(log, string(job.Kind), job.ID, result.Status == Removed, result.Status == AlreadyGone, result.Error)
	return result
}
