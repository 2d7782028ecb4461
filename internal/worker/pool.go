package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/abhinav-TB/Build-Trace/internal/differ"
	"github.com/abhinav-TB/Build-Trace/internal/logger"
	"github.com/abhinav-TB/Build-Trace/internal/metrics"
	"github.com/abhinav-TB/Build-Trace/internal/storage"
)

// Job is one detection request: compare the drawing at APath against
// the one at BPath.
type Job struct {
	JobID string `json:"id"`
	APath string `json:"a"`
	BPath string `json:"b"`
}

// Manifest is a batch of detection jobs.
type Manifest struct {
	Pairs []Job `json:"pairs"`
}

// Pool runs detection jobs across a fixed set of goroutines. Every job
// drives the aggregator: start-mark, outcome, change statistics, and
// classified errors on failure. A failed job never stops the pool.
type Pool struct {
	workerCount   int
	resultsPrefix string

	engine *differ.Engine
	store  *storage.Store
	agg    *metrics.Aggregator
	log    logger.Logger

	jobChan chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.workerCount = n
		}
	}
}

// WithResultsPrefix makes workers persist each change set to
// <prefix>/<job id>.json.
func WithResultsPrefix(prefix string) PoolOption {
	return func(p *Pool) { p.resultsPrefix = prefix }
}

// WithPoolLogger sets the diagnostic logger.
func WithPoolLogger(l logger.Logger) PoolOption {
	return func(p *Pool) { p.log = l }
}

// NewPool creates a Pool; Start must be called before Submit.
func NewPool(engine *differ.Engine, store *storage.Store, agg *metrics.Aggregator, opts ...PoolOption) *Pool {
	p := &Pool{
		workerCount: runtime.NumCPU(),
		engine:      engine,
		store:       store,
		agg:         agg,
		log:         logger.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.jobChan = make(chan Job, p.workerCount*2)

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit queues a job, assigning an id when the manifest carried none.
// It returns the effective job id.
func (p *Pool) Submit(job Job) string {
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	p.agg.MarkStart(job.JobID)
	select {
	case p.jobChan <- job:
	case <-p.ctx.Done():
		p.agg.MarkEnd(job.JobID, false)
	}
	return job.JobID
}

// Stop drains queued jobs and waits for workers to finish.
func (p *Pool) Stop() {
	close(p.jobChan)
	p.wg.Wait()
	p.cancel()
}

// Run processes a whole manifest and blocks until every job finished.
func (p *Pool) Run(ctx context.Context, jobs []Job) {
	p.Start(ctx)
	for _, job := range jobs {
		p.Submit(job)
	}
	p.Stop()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	log := p.log.WithField("worker", id)

	for job := range p.jobChan {
		select {
		case <-p.ctx.Done():
			p.agg.MarkEnd(job.JobID, false)
			continue
		default:
		}
		p.process(job, log)
	}
}

func (p *Pool) process(job Job, log logger.Logger) {
	log = log.WithField("job_id", job.JobID)

	a, err := p.store.LoadObjects(p.ctx, job.APath)
	if err != nil {
		log.Error("failed to load version A", err)
		p.agg.MarkError(job.JobID, metrics.ErrMissingData)
		p.agg.MarkEnd(job.JobID, false)
		return
	}
	b, err := p.store.LoadObjects(p.ctx, job.BPath)
	if err != nil {
		log.Error("failed to load version B", err)
		p.agg.MarkError(job.JobID, metrics.ErrMissingData)
		p.agg.MarkEnd(job.JobID, false)
		return
	}

	cs := p.engine.Compute(p.ctx, a, b)

	if p.resultsPrefix != "" {
		resultPath := fmt.Sprintf("%s/%s.json", p.resultsPrefix, job.JobID)
		if err := p.store.WriteResult(p.ctx, resultPath, cs); err != nil {
			log.Error("failed to write result", err)
			p.agg.MarkError(job.JobID, metrics.ErrProcessing)
			p.agg.MarkEnd(job.JobID, false)
			return
		}
	}

	p.agg.MarkEndWithChanges(job.JobID, true, cs.Stats)
	log.WithFields(map[string]interface{}{
		"added":   cs.Stats.AddedCount,
		"removed": cs.Stats.RemovedCount,
		"moved":   cs.Stats.MovedCount,
	}).Info("detection job completed")
}
