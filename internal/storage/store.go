// Package storage persists sessions, transcripts, memory records and the
// round archive through gorm.
package storage

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/easeaico/project-keeper/internal/types"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store holds the DB pool and repositories.
type Store struct {
	db     *gorm.DB
	driver string

	Memories   *MemoryRepo
	Messages   *MessageRepo
	Maps       *MapVersionRepo
	Characters *CharacterRepo
	Overrides  *DCOverrideRepo
	Archive    *RoundArchiveRepo
}

// Dialector returns the gorm dialector for driver.
func Dialector(driver, databaseURL string) (gorm.Dialector, error) {
	switch driver {
	case DriverPostgres:
		return postgres.Open(databaseURL), nil
	case DriverSQLite:
		return sqlite.Open(databaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// NewStore opens the database and builds the repositories.
func NewStore(ctx context.Context, driver, databaseURL string) (*Store, error) {
	dialector, err := Dialector(driver, databaseURL)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if driver == DriverSQLite {
		// 单写者，避免 database is locked。
		sqlDB.SetMaxOpenConns(1)
	}

	return &Store{
		db:         db,
		driver:     driver,
		Memories:   NewMemoryRepo(db),
		Messages:   NewMessageRepo(db),
		Maps:       NewMapVersionRepo(db),
		Characters: NewCharacterRepo(db),
		Overrides:  NewDCOverrideRepo(db),
		Archive:    NewRoundArchiveRepo(db, driver == DriverPostgres),
	}, nil
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if s.driver == DriverPostgres {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("failed to enable pgvector: %w", err)
		}
	}
	err := db.AutoMigrate(
		&memoryModel{},
		&messageModel{},
		&mapVersionModel{},
		&characterModel{},
		&dcOverrideModel{},
		&roundArchiveModel{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// CommitRefresh applies the writes of one memory refresh pass in a single
// transaction. The memory record is compared on its revision and written
// last, so a stale pass rolls back its character and map writes too.
func (s *Store) CommitRefresh(ctx context.Context, c types.RefreshCommit) error {
	if c.Record == nil {
		return fmt.Errorf("refresh commit requires a memory record")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if c.Lists != nil {
			if err := NewCharacterRepo(tx).UpdateCharacterState(ctx, c.CharacterID, *c.Lists); err != nil {
				return err
			}
		}
		if c.Map != nil {
			if err := NewMapVersionRepo(tx).AppendMapVersion(ctx, c.Record.SessionID, c.Map.RoundIndex, c.Map.Content); err != nil {
				return err
			}
		}
		return NewMemoryRepo(tx).swapMemory(ctx, c.Record)
	})
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Driver() string {
	return s.driver
}

func (s *Store) Close() {
	if s.db == nil {
		return
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}
