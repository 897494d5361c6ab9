package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/OCAP2/droneview/internal/config"
	"github.com/OCAP2/droneview/internal/database"
	"github.com/OCAP2/droneview/internal/logging"
	"github.com/OCAP2/droneview/internal/storage"
	"github.com/OCAP2/droneview/internal/storage/memory"
	pgstorage "github.com/OCAP2/droneview/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/droneview/internal/storage/sqlite"
	wsstorage "github.com/OCAP2/droneview/internal/storage/websocket"
	"github.com/spf13/viper"
)

func createStorageBackend(storageCfg config.StorageConfig, outputDir string) (storage.Backend, error) {
	stamp := SessionStartTime.Format("20060102_150405")

	switch storageCfg.Type {
	case "postgres":
		Logger.Info("Postgres storage backend initialized")
		dbLog := logging.NewZerolog(logWriter(), viper.GetString("logLevel"))
		return pgstorage.New(pgstorage.Dependencies{
			Config:       database.ConfigFromViper(),
			FallbackPath: filepath.Join(outputDir, fmt.Sprintf("%s_%s.db", AppName, stamp)),
			Logger:       Logger,
			DBLogger:     dbLog,
		}), nil

	case "sqlite":
		dumpPath := storageCfg.SQLite.Path
		if dumpPath == "" {
			dumpPath = fmt.Sprintf("%s_%s.db", AppName, stamp)
		}
		if !filepath.IsAbs(dumpPath) {
			dumpPath = filepath.Join(outputDir, dumpPath)
		}
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     dumpPath,
		}, Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend initialized", "path", dumpPath)
		return backend, nil

	case "websocket":
		wsURL := httpToWS(storageCfg.WebSocket.URL)
		Logger.Info("WebSocket storage backend initialized", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: storageCfg.WebSocket.Secret,
		}, Logger), nil

	default:
		Logger.Info("Memory storage backend initialized")
		return memory.New(storageCfg.Memory), nil
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
