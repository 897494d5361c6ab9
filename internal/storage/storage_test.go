// internal/storage/storage_test.go
package storage_test

import (
	"testing"

	"github.com/OCAP2/droneview/internal/storage"
	"github.com/OCAP2/droneview/internal/storage/memory"
	gormstorage "github.com/OCAP2/droneview/internal/storage/gorm"
	"github.com/OCAP2/droneview/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/droneview/internal/storage/sqlite"
	"github.com/OCAP2/droneview/internal/storage/websocket"
)

// Compile-time interface checks
var (
	_ storage.Backend  = (*memory.Backend)(nil)
	_ storage.Exporter = (*memory.Backend)(nil)
	_ storage.Backend  = (*gormstorage.Backend)(nil)
	_ storage.Backend  = (*postgres.Backend)(nil)
	_ storage.Backend  = (*sqlitestorage.Backend)(nil)
	_ storage.Exporter = (*sqlitestorage.Backend)(nil)
	_ storage.Backend  = (*websocket.Backend)(nil)
)

func TestInterfacesSatisfied(t *testing.T) {}
