// Package postgres implements the storage.Backend interface using GORM/PostgreSQL.
// When Postgres is unreachable the database manager falls back to a local
// SQLite file so a recording is never lost.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/OCAP2/droneview/internal/database"
	gormstorage "github.com/OCAP2/droneview/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	Config database.Config
	// FallbackPath is the SQLite file used when Postgres is unreachable.
	FallbackPath string
	Logger       *slog.Logger
	DBLogger     zerolog.Logger
}

// Backend wraps the GORM backend with connection management.
type Backend struct {
	*gormstorage.Backend
	manager *database.Manager
}

// New creates a new Postgres storage backend. No connection is made until Init.
func New(deps Dependencies) *Backend {
	m := database.NewManager(deps.Config, deps.DBLogger)
	m.SqliteFilePath = deps.FallbackPath
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{Logger: deps.Logger}),
		manager: m,
	}
}

// Init connects, migrates and starts the writer.
func (b *Backend) Init() error {
	if err := b.manager.Connect(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	b.Backend.SetDB(b.manager.DB)
	return b.Backend.Init()
}

// Local reports whether the backend fell back to SQLite.
func (b *Backend) Local() bool {
	return b.manager.ShouldSaveLocal
}
