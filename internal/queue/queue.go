package queue

import (
	"log/slog"
	"sync"
)

type Job struct {
	Fn   func() error
	Errc chan error
}

// RequestQueueManager runs jobs on a fixed pool of workers fed by a bounded channel.
type RequestQueueManager struct {
	JobQueue   chan Job
	MaxWorkers int
	log        *slog.Logger
	wg         sync.WaitGroup
	closeOnce  sync.Once
	mu         sync.RWMutex
	closed     bool
}

func NewRequestQueueManager(queueSize int, maxWorkers int, logger *slog.Logger) *RequestQueueManager {
	if logger == nil {
		logger = slog.Default()
	}
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	manager := &RequestQueueManager{
		JobQueue:   make(chan Job, queueSize),
		MaxWorkers: maxWorkers,
		log:        logger,
	}
	manager.startWorkers()
	return manager
}

func (rqm *RequestQueueManager) startWorkers() {
	for i := 0; i < rqm.MaxWorkers; i++ {
		rqm.wg.Add(1)
		go func(workerID int) {
			defer rqm.wg.Done()
			rqm.log.Debug("worker started", slog.Int("worker", workerID))
			for job := range rqm.JobQueue {
				err := rqm.run(job)
				if job.Errc != nil {
					job.Errc <- err
				}
			}
			rqm.log.Debug("worker stopped", slog.Int("worker", workerID))
		}(i)
	}
}

func (rqm *RequestQueueManager) run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			rqm.log.Error("job panicked", slog.Any("panic", r))
			err = errJobPanicked
		}
	}()
	return job.Fn()
}

// EnqueueJob blocks until a worker slot in the queue is free.
func (rqm *RequestQueueManager) EnqueueJob(job Job) {
	rqm.mu.RLock()
	defer rqm.mu.RUnlock()
	if rqm.closed {
		if job.Errc != nil {
			job.Errc <- ErrQueueClosed
		}
		return
	}
	rqm.JobQueue <- job
}

// TryEnqueue queues job without blocking and reports whether it was accepted.
func (rqm *RequestQueueManager) TryEnqueue(job Job) bool {
	rqm.mu.RLock()
	defer rqm.mu.RUnlock()
	if rqm.closed {
		return false
	}
	select {
	case rqm.JobQueue <- job:
		return true
	default:
		return false
	}
}

// Dispatch runs task on the pool, or on its own goroutine when the queue is full or closed.
func (rqm *RequestQueueManager) Dispatch(task func()) {
	ok := rqm.TryEnqueue(Job{Fn: func() error {
		task()
		return nil
	}})
	if !ok {
		rqm.log.Warn("queue full, dispatching on a new goroutine")
		go task()
	}
}

func (rqm *RequestQueueManager) Shutdown() {
	rqm.closeOnce.Do(func() {
		rqm.mu.Lock()
		rqm.closed = true
		close(rqm.JobQueue)
		rqm.mu.Unlock()
	})
	rqm.wg.Wait()
}
