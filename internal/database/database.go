// Package database opens the GORM connections used by the storage backends
// and owns schema setup and SQLite disk dumps.
package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gunline/firecontrol/internal/config"
	"github.com/gunline/firecontrol/internal/model"
)

var ErrNoDumpPath = errors.New("sqlite dump path not set")

var sqlitePragmas = []string{
	"PRAGMA journal_mode = MEMORY;",
	"PRAGMA synchronous = OFF;",
	"PRAGMA cache_size = -32000;",
	"PRAGMA temp_store = MEMORY;",
}

// PostgresDSN builds a libpq keyword/value DSN.
func PostgresDSN(cfg config.DBConfig) string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)
}

// OpenPostgres connects and pings a PostgreSQL database.
func OpenPostgres(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  PostgresDSN(cfg),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	return db, nil
}

// OpenSQLite opens a SQLite file, or a private in-memory database when
// path is empty. In-memory databases use a single connection so every
// statement sees the same data.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if path == "" {
		dsn = fmt.Sprintf("file:firecontrol-%s?mode=memory&cache=shared", uuid.NewString())
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        500,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range sqlitePragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}

// Setup migrates the schema and seeds the server info row.
func Setup(db *gorm.DB, log zerolog.Logger, version string) error {
	if !db.Migrator().HasTable(&model.ServerInfo{}) {
		if err := db.AutoMigrate(&model.ServerInfo{}); err != nil {
			return fmt.Errorf("failed to create server_infos table: %w", err)
		}
		if err := db.Create(&model.ServerInfo{
			Name:        "firecontrol",
			Description: "weapon range recorder",
			Version:     version,
		}).Error; err != nil {
			return fmt.Errorf("failed to create server_infos entry: %w", err)
		}
	}

	log.Info().Str("dialect", db.Name()).Msg("Migrating schema")
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	log.Info().Msg("Database setup complete")
	return nil
}

// DumpToDisk writes a consistent snapshot of a SQLite database to path,
// replacing any previous dump.
func DumpToDisk(db *gorm.DB, path string) error {
	if path == "" {
		return ErrNoDumpPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error removing existing DB file: %w", err)
	}
	if err := db.Exec("VACUUM INTO ?", path).Error; err != nil {
		return fmt.Errorf("error dumping DB to disk: %w", err)
	}
	return nil
}

// Manager connects to PostgreSQL and falls back to a local SQLite file
// when the server is unreachable.
type Manager struct {
	DB       *gorm.DB
	IsLocal  bool
	Fallback string
	Logger   zerolog.Logger
}

// NewManager creates a manager. fallback is the SQLite file used when
// PostgreSQL cannot be reached; empty means in-memory.
func NewManager(log zerolog.Logger, fallback string) *Manager {
	return &Manager{Logger: log, Fallback: fallback}
}

// Connect opens PostgreSQL or the fallback and runs Setup.
func (m *Manager) Connect(cfg config.DBConfig, version string) error {
	db, err := OpenPostgres(cfg)
	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
		db, err = OpenSQLite(m.Fallback)
		if err != nil {
			return fmt.Errorf("failed to get local SQLite DB: %w", err)
		}
		m.IsLocal = true
		m.Logger.Info().Str("path", m.Fallback).Msg("Using local SQLite DB")
	} else {
		m.Logger.Info().Str("host", cfg.Host).Msg("Connected to database")
	}
	m.DB = db
	return Setup(db, m.Logger, version)
}
