package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"carrental-prototype/internal/utils"
)

var (
	ErrQueueFull       = errors.New("очередь задач переполнена")
	ErrPoolClosed      = errors.New("пул воркеров остановлен")
	ErrShutdownTimeout = errors.New("превышен таймаут остановки пула")
)

// Job представляет задачу для выполнения
type Job struct {
	ID      string
	Task    func() error
	RetryOn func(error) bool // нужна ли повторная попытка для данной ошибки
	OnDone  func(error)      // callback после завершения
}

// WorkerPool управляет пулом воркеров
type WorkerPool struct {
	workers    int
	jobQueue   chan Job
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	closed     bool
	stats      PoolStats
	maxRetries int
}

// PoolStats содержит статистику работы пула
type PoolStats struct {
	TotalJobs     int64 `json:"total_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
	FailedJobs    int64 `json:"failed_jobs"`
	ActiveWorkers int   `json:"active_workers"`
	QueuedJobs    int   `json:"queued_jobs"`
}

func NewWorkerPool(workers int, queueSize int, maxRetries int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	pool := &WorkerPool{
		workers:    workers,
		jobQueue:   make(chan Job, queueSize),
		ctx:        ctx,
		cancel:     cancel,
		maxRetries: maxRetries,
		stats: PoolStats{
			ActiveWorkers: workers,
		},
	}

	utils.LogSuccess("WorkerPool", "Создан пул воркеров (воркеров: %d, очередь: %d, повторов: %d)",
		workers, queueSize, maxRetries)

	return pool
}

// Start запускает воркеры
func (p *WorkerPool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	utils.LogSuccess("WorkerPool", "Все воркеры запущены")
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			utils.LogInfo("WorkerPool", "Воркер #%d завершает работу", id)
			return

		case job, ok := <-p.jobQueue:
			if !ok {
				utils.LogInfo("WorkerPool", "Воркер #%d: очередь закрыта", id)
				return
			}

			p.executeJob(id, job)
		}
	}
}

// executeJob выполняет задачу с повторными попытками при необходимости
func (p *WorkerPool) executeJob(workerID int, job Job) {
	startTime := time.Now()
	var err error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			utils.LogWarning("WorkerPool", "Воркер #%d: повторная попытка #%d для задачи %s", workerID, attempt, job.ID)
			time.Sleep(time.Millisecond * time.Duration(100*attempt))
		}

		err = job.Task()

		if err == nil {
			p.markDone(true)
			utils.LogSuccess("WorkerPool", "Воркер #%d: задача %s выполнена за %v", workerID, job.ID, time.Since(startTime))

			if job.OnDone != nil {
				job.OnDone(nil)
			}
			return
		}

		if job.RetryOn != nil && !job.RetryOn(err) {
			break
		}
	}

	p.markDone(false)
	utils.LogError("WorkerPool", fmt.Sprintf("Воркер #%d: задача %s провалилась после %v", workerID, job.ID, time.Since(startTime)), err)

	if job.OnDone != nil {
		job.OnDone(err)
	}
}

// Submit добавляет задачу в очередь без блокировки.
// Мьютекс держится на время отправки, чтобы Shutdown не закрыл
// очередь между проверкой closed и записью в канал.
func (p *WorkerPool) Submit(job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		utils.LogWarning("WorkerPool", "Пул остановлен, задача %s отклонена", job.ID)
		return ErrPoolClosed
	}

	select {
	case <-p.ctx.Done():
		return context.Canceled

	case p.jobQueue <- job:
		p.stats.TotalJobs++
		utils.LogDebug("WorkerPool", "Задача %s добавлена в очередь", job.ID)
		return nil

	default:
		utils.LogWarning("WorkerPool", "Очередь переполнена, задача %s отклонена", job.ID)
		return ErrQueueFull
	}
}

// Shutdown закрывает очередь и ждёт завершения воркеров
func (p *WorkerPool) Shutdown(timeout time.Duration) error {
	utils.LogInfo("WorkerPool", "Начинается остановка пула воркеров...")

	p.mu.Lock()
	alreadyClosed := p.closed
	p.closed = true
	p.mu.Unlock()

	if !alreadyClosed {
		close(p.jobQueue)
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		utils.LogSuccess("WorkerPool", "Все воркеры завершили работу")
		return nil

	case <-time.After(timeout):
		p.cancel()
		utils.LogWarning("WorkerPool", "Превышен таймаут остановки, принудительное завершение")
		return ErrShutdownTimeout
	}
}

// GetStats возвращает текущую статистику пула
func (p *WorkerPool) GetStats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := p.stats
	stats.QueuedJobs = len(p.jobQueue)
	return stats
}

func (p *WorkerPool) markDone(success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if success {
		p.stats.CompletedJobs++
	} else {
		p.stats.FailedJobs++
	}
}
