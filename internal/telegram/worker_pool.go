package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/polishtutor/polishtutor/internal/logger"
)

// WorkerPool handles updates concurrently so a slow backend call (a photo,
// a long generation) does not hold up the rest of the chat traffic.
type WorkerPool struct {
	handle      func(ctx context.Context, update tgbotapi.Update)
	updateQueue chan tgbotapi.Update
	workerCount int

	// Concurrency control
	maxConcurrentOps int
	opSemaphore      chan struct{}

	// Lifecycle management
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.RWMutex
}

// WorkerPoolConfig holds configuration for the worker pool
type WorkerPoolConfig struct {
	Workers          int // Number of goroutines draining the queue
	QueueSize        int // Size of update queue buffer
	MaxConcurrentOps int // Maximum concurrent handler runs (backend calls)
}

func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		Workers:          8,
		QueueSize:        100,
		MaxConcurrentOps: 4,
	}
}

// NewWorkerPool creates a pool that passes every update to handle.
func NewWorkerPool(handle func(ctx context.Context, update tgbotapi.Update), config WorkerPoolConfig) *WorkerPool {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.MaxConcurrentOps <= 0 {
		config.MaxConcurrentOps = config.Workers
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		handle:           handle,
		updateQueue:      make(chan tgbotapi.Update, config.QueueSize),
		workerCount:      config.Workers,
		maxConcurrentOps: config.MaxConcurrentOps,
		opSemaphore:      make(chan struct{}, config.MaxConcurrentOps),
		ctx:              ctx,
		cancel:           cancel,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return fmt.Errorf("worker pool already started")
	}

	logger.Info("Starting worker pool", map[string]interface{}{
		"workers":            wp.workerCount,
		"max_concurrent_ops": wp.maxConcurrentOps,
		"queue_size":         cap(wp.updateQueue),
	})

	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}

	wp.started = true
	return nil
}

// Stop stops accepting updates and waits for queued ones to drain.
func (wp *WorkerPool) Stop() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if !wp.started {
		return fmt.Errorf("worker pool not started")
	}

	logger.InfoMsg("Stopping worker pool...")

	close(wp.updateQueue)

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.InfoMsg("Worker pool stopped gracefully")
	case <-time.After(30 * time.Second):
		wp.cancel()
		logger.Warn("Worker pool shutdown timed out", nil)
		return fmt.Errorf("worker pool shutdown timed out")
	}

	wp.cancel()
	wp.started = false
	return nil
}

// Submit queues an update, waiting while the queue is full. It gives up only
// when ctx is done or the pool is shutting down.
func (wp *WorkerPool) Submit(ctx context.Context, update tgbotapi.Update) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if !wp.started {
		return fmt.Errorf("worker pool not started")
	}

	select {
	case wp.updateQueue <- update:
		logger.Debug("Update queued for processing", map[string]interface{}{
			"update_id":  update.UpdateID,
			"queue_size": len(wp.updateQueue),
		})
		return nil
	case <-ctx.Done():
		return fmt.Errorf("update %d not queued: %w", update.UpdateID, ctx.Err())
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

func (wp *WorkerPool) worker(workerID int) {
	defer wp.wg.Done()

	for update := range wp.updateQueue {
		wp.process(update, workerID)
	}

	logger.Debug("Worker stopping", map[string]interface{}{
		"worker_id": workerID,
	})
}

func (wp *WorkerPool) process(update tgbotapi.Update, workerID int) {
	select {
	case wp.opSemaphore <- struct{}{}:
		defer func() { <-wp.opSemaphore }()
	case <-wp.ctx.Done():
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Worker panic recovered", map[string]interface{}{
				"worker_id": workerID,
				"update_id": update.UpdateID,
				"panic":     r,
			})
		}
	}()

	startTime := time.Now()
	wp.handle(wp.ctx, update)

	logger.Debug("Update processed", map[string]interface{}{
		"worker_id": workerID,
		"update_id": update.UpdateID,
		"duration":  time.Since(startTime).String(),
	})
}

// GetStats returns current worker pool statistics
func (wp *WorkerPool) GetStats() map[string]interface{} {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	return map[string]interface{}{
		"started":            wp.started,
		"queue_size":         len(wp.updateQueue),
		"queue_capacity":     cap(wp.updateQueue),
		"active_operations":  len(wp.opSemaphore),
		"max_concurrent_ops": wp.maxConcurrentOps,
		"workers":            wp.workerCount,
	}
}
