package history

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/realtime-chat-server/modules/session"
)

// ErrNotReady is returned when the store is used before Start opened
// the database.
var ErrNotReady = errors.New("history store not started")

// Module owns the SQLite-backed message store.
type Module struct {
	db     *gorm.DB
	repo   *Repository
	dbPath string
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ session.MessageStore       = (*Module)(nil)
)

// NewModule creates the history module. dbPath may be ":memory:" for an
// ephemeral store.
func NewModule(dbPath string) *Module {
	if dbPath == "" {
		dbPath = "chat.db"
	}
	return &Module{dbPath: dbPath}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "history"
}

// Start opens the database and runs migrations.
func (m *Module) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("open database %q: %w", m.dbPath, err)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	m.db = db
	m.repo = NewRepository(db)
	log.Printf("[history] store ready at %s", m.dbPath)
	return nil
}

// Stop closes the underlying database connection.
func (m *Module) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Health performs a database ping.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}

// Insert implements session.MessageStore.
func (m *Module) Insert(ctx context.Context, msg session.Message) error {
	if m.repo == nil {
		return ErrNotReady
	}
	return m.repo.Insert(ctx, msg)
}

// Recent implements session.MessageStore.
func (m *Module) Recent(ctx context.Context, limit int) ([]session.Message, error) {
	if m.repo == nil {
		return nil, ErrNotReady
	}
	return m.repo.Recent(ctx, limit)
}

// All returns the full message history ascending by timestamp.
func (m *Module) All(ctx context.Context) ([]session.Message, error) {
	if m.repo == nil {
		return nil, ErrNotReady
	}
	return m.repo.All(ctx)
}
