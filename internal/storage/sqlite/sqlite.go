// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/OCAP2/droneview/internal/database"
	gormstorage "github.com/OCAP2/droneview/internal/storage/gorm"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      Config
	log      *slog.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new SQLite storage backend.
func New(cfg Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := database.OpenSQLite("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{DB: db, Logger: logger}),
		db:      db,
		cfg:     cfg,
		log:     logger,
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	} else {
		close(b.done)
	}
	return nil
}

// Close stops the dump goroutine and closes the embedded GORM backend.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	return b.Backend.Close()
}

// EndRun flushes pending rows and writes a final dump.
func (b *Backend) EndRun() error {
	if err := b.Backend.EndRun(); err != nil {
		return err
	}
	if b.cfg.DumpPath == "" {
		return nil
	}
	return b.dump()
}

// ExportedFiles returns the dump file, if one is configured.
func (b *Backend) ExportedFiles() []string {
	if b.cfg.DumpPath == "" {
		return nil
	}
	return []string{b.cfg.DumpPath}
}

func (b *Backend) dump() error {
	start := time.Now()
	if err := database.DumpSQLiteToDisk(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.log.Debug("Dumped to disk", "path", b.cfg.DumpPath, "duration", time.Since(start))
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			}
		}
	}
}
