package jobqueue

import (
	"context"
	"sync"
	"time"

	"repoanalyzer.dev/logging"
)

// Processor handles one dequeued job. Process's error is non-nil only for
// failures; the processor itself decides nothing about retries, the pool
// unconditionally marks failed jobs failed-without-requeue, mirroring the
// teacher's worker.Worker ("processor should handle retry logic" — here
// that logic lives in the caller choosing whether to re-enqueue via
// Queue.Enqueue from outside the pool, e.g. after reading a dead-letter log).
type Processor interface {
	Process(ctx context.Context, job Job) error
	Timeout(job Job) time.Duration
}

// PoolConfig maps queue name to worker count, mirroring worker.Config.
type PoolConfig struct {
	Queues map[string]int
}

// DefaultPoolConfig gives ingest the most workers since it is the slowest
// and most parallelizable stage; cross-repository learning gets exactly one
// worker since it touches every repo's patterns and two running concurrently
// would race on the same meta-pattern groups.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Queues: map[string]int{
			"ingest":      4,
			"learn":       2,
			"cross_learn": 1,
			"apply":       2,
		},
	}
}

// Pool runs one goroutine per (queue, worker slot) pulling jobs from Queue
// and handing them to Processor.
type Pool struct {
	queue     *Queue
	processor Processor
	log       *logging.Scoped

	workers  []*worker
	stopOnce sync.Once
	stopped  chan struct{}
	wg       sync.WaitGroup
}

type worker struct {
	id        int
	queueName string
}

// NewPool builds a pool of idle workers; call Start to begin processing.
func NewPool(queue *Queue, processor Processor, cfg PoolConfig, log *logging.Scoped) *Pool {
	p := &Pool{
		queue:     queue,
		processor: processor,
		log:       log.With(map[string]interface{}{"component": "jobqueue"}),
		stopped:   make(chan struct{}),
	}
	for name, count := range cfg.Queues {
		for i := 0; i < count; i++ {
			p.workers = append(p.workers, &worker{id: i, queueName: name})
		}
	}
	return p
}

// Start launches every worker goroutine. ctx cancellation stops all workers.
func (p *Pool) Start(ctx context.Context) {
	p.log.Infof("starting job pool with %d workers", len(p.workers))
	for _, w := range p.workers {
		w := w
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx, w)
		}()
	}
}

// Stop signals every worker to exit and waits for them to drain. Idempotent.
func (p *Pool) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stopped) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) run(ctx context.Context, w *worker) {
	log := p.log.With(map[string]interface{}{"worker": w.id, "queue": w.queueName})
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopped:
			return
		default:
		}

		if err := p.processNext(ctx, w); err != nil {
			log.WithError(err).Warn("dequeue failed")
			time.Sleep(time.Second)
		}
	}
}

func (p *Pool) processNext(ctx context.Context, w *worker) error {
	job, err := p.queue.Dequeue(ctx, w.queueName, 5*time.Second)
	if err != nil {
		return err
	}
	if job == nil {
		return nil
	}

	log := p.log.With(map[string]interface{}{"worker": w.id, "queue": w.queueName, "job_id": job.ID})
	timeout := p.processor.Timeout(*job)
	deadline := time.Now().Add(timeout)

	if err := p.queue.MarkProcessing(ctx, job.ID, deadline); err != nil {
		log.WithError(err).Warn("failed to mark processing, requeueing")
		return p.queue.Enqueue(ctx, *job)
	}

	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.processor.Process(jobCtx, *job); err != nil {
		log.WithError(err).Warn("job failed")
		if failErr := p.queue.FailJob(ctx, *job, false); failErr != nil {
			log.WithError(failErr).Error("failed to mark job failed")
		}
		return nil
	}

	if err := p.queue.CompleteJob(ctx, job.ID); err != nil {
		log.WithError(err).Error("failed to mark job complete")
	}
	log.Info("job complete")
	return nil
}
