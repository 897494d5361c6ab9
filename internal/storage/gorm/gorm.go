// Package gormstorage implements storage.Backend on top of GORM with
// internal queues drained by a background writer goroutine. The postgres
// and sqlite backends embed it.
package gormstorage

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/droneview/internal/database"
	"github.com/OCAP2/droneview/internal/model"
	"github.com/OCAP2/droneview/internal/model/convert"
	"github.com/OCAP2/droneview/internal/queue"
	"github.com/OCAP2/droneview/pkg/core"

	"gorm.io/gorm"
)

const (
	defaultFlushInterval = 2 * time.Second
	defaultBatchSize     = 5000
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
	// FlushInterval is the writer period; zero means 2s.
	FlushInterval time.Duration
	// BatchSize caps rows per insert transaction; zero means 5000.
	BatchSize int
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps         Dependencies
	observations *queue.Queue[model.Observation]
	metrics      *queue.Queue[model.IntervalMetric]
	runID        atomic.Uint64

	writeMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = defaultBatchSize
	}
	return &Backend{
		deps:         deps,
		observations: queue.New[model.Observation](),
		metrics:      queue.New[model.IntervalMetric](),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// SetDB injects the connection before Init, for wrappers that open their own.
func (b *Backend) SetDB(db *gorm.DB) {
	b.deps.DB = db
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("no database connection")
	}
	b.deps.Logger.Info("Migrating schema", "dialect", b.deps.DB.Dialector.Name())
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the writer goroutine after a final flush.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil
	return b.Flush()
}

// StartRun inserts the run row synchronously so queued rows can reference it.
func (b *Backend) StartRun(run *core.Run) error {
	gormRun := convert.CoreToRun(*run)
	if err := b.deps.DB.Create(&gormRun).Error; err != nil {
		return fmt.Errorf("failed to insert new run: %w", err)
	}
	b.runID.Store(uint64(gormRun.ID))
	b.deps.Logger.Info("Run started", "run", run.ID, "dbId", gormRun.ID)
	return nil
}

// EndRun flushes the queues and stamps the run's end time.
func (b *Backend) EndRun() error {
	if err := b.Flush(); err != nil {
		return err
	}
	id := uint(b.runID.Load())
	if id == 0 {
		return nil
	}
	if err := b.deps.DB.Model(&model.Run{}).Where("id = ?", id).Update("end_time", time.Now().UTC()).Error; err != nil {
		return fmt.Errorf("failed to close run: %w", err)
	}
	return nil
}

// RecordObservation converts and queues an observation.
func (b *Backend) RecordObservation(o *core.Observation) error {
	b.observations.Push(convert.CoreToObservation(0, *o))
	return nil
}

// RecordMetrics converts and queues a metrics row.
func (b *Backend) RecordMetrics(m *core.IntervalMetrics) error {
	b.metrics.Push(convert.CoreToIntervalMetric(0, *m))
	return nil
}

// Pending returns the number of queued rows.
func (b *Backend) Pending() int {
	return b.observations.Len() + b.metrics.Len()
}

// Flush writes all queued rows. A failed batch is requeued and its error
// returned.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	runID := uint(b.runID.Load())
	stampObs := func(items []model.Observation) {
		for i := range items {
			items[i].RunID = runID
		}
	}
	stampMetrics := func(items []model.IntervalMetric) {
		for i := range items {
			items[i].RunID = runID
		}
	}

	for !b.observations.Empty() {
		if err := writeQueue(b.deps.DB, b.observations, b.deps.BatchSize, stampObs); err != nil {
			return fmt.Errorf("observations: %w", err)
		}
	}
	for !b.metrics.Empty() {
		if err := writeQueue(b.deps.DB, b.metrics, b.deps.BatchSize, stampMetrics); err != nil {
			return fmt.Errorf("interval metrics: %w", err)
		}
	}
	return nil
}

// writeQueue writes one batch from a queue to the database in a
// transaction. A failed batch goes back to the head of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], batch int, prepare func([]T)) error {
	items := q.Drain(batch)
	if len(items) == 0 {
		return nil
	}
	if prepare != nil {
		prepare(items)
	}

	tx := db.Begin()
	if tx.Error != nil {
		q.Requeue(items)
		return tx.Error
	}
	if err := tx.Create(&items).Error; err != nil {
		tx.Rollback()
		q.Requeue(items)
		return err
	}
	if err := tx.Commit().Error; err != nil {
		q.Requeue(items)
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// writeLoop periodically drains the queues into the DB.
func (b *Backend) writeLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("DB write failed", "error", err, "pending", b.Pending())
			}
		}
	}
}
