package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"weatheragent/internal/config"
	"weatheragent/internal/model"
)

// ErrStoreNotInitialized is returned by every operation once the pool is missing or closed.
var ErrStoreNotInitialized = errors.New("chat history store not initialized")

func init() {
	// sqlx does not know the modernc driver name
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

var schemas = map[string][]string{
	"postgres": {
		`CREATE TABLE IF NOT EXISTS chat_history (
			id           BIGSERIAL PRIMARY KEY,
			session_id   TEXT NOT NULL,
			user_message TEXT NOT NULL,
			ai_response  TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_history_session ON chat_history (session_id, id)`,
	},
	"sqlite": {
		`CREATE TABLE IF NOT EXISTS chat_history (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id   TEXT NOT NULL,
			user_message TEXT NOT NULL,
			ai_response  TEXT NOT NULL,
			created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_history_session ON chat_history (session_id, id)`,
	},
}

// HistoryRepository stores conversation turns in Postgres or SQLite
type HistoryRepository struct {
	mu     sync.RWMutex
	db     *sqlx.DB
	driver string
}

// NewHistoryRepository opens the pool and verifies it with a ping.
func NewHistoryRepository(ctx context.Context, cfg config.DatabaseConfig, dsn string) (*HistoryRepository, error) {
	if _, ok := schemas[cfg.Driver]; !ok {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	if cfg.Driver == "sqlite" && !strings.Contains(dsn, "_time_format") {
		// store timestamps in a layout the driver parses back into time.Time
		if !strings.Contains(dsn, "?") {
			dsn += "?_time_format=sqlite"
		} else {
			dsn += "&_time_format=sqlite"
		}
	}

	db, err := sqlx.ConnectContext(ctx, cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	maxConn := cfg.MaxConnections
	if cfg.Driver == "sqlite" {
		// single writer avoids SQLITE_BUSY under concurrent appends
		maxConn = 1
	}
	if maxConn > 0 {
		db.SetMaxOpenConns(maxConn)
	}
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	return &HistoryRepository{db: db, driver: cfg.Driver}, nil
}

func (r *HistoryRepository) handle() (*sqlx.DB, error) {
	if r == nil {
		return nil, ErrStoreNotInitialized
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.db == nil {
		return nil, ErrStoreNotInitialized
	}
	return r.db, nil
}

// Driver returns the configured driver name.
func (r *HistoryRepository) Driver() string {
	return r.driver
}

// Migrate creates the chat_history table and its index.
func (r *HistoryRepository) Migrate(ctx context.Context) error {
	db, err := r.handle()
	if err != nil {
		return err
	}
	for _, stmt := range schemas[r.driver] {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate chat_history: %w", err)
		}
	}
	return nil
}

// Ping checks the connection
func (r *HistoryRepository) Ping(ctx context.Context) error {
	db, err := r.handle()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close releases the pool. Later calls fail with ErrStoreNotInitialized.
func (r *HistoryRepository) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// Append stores one user/AI message pair.
func (r *HistoryRepository) Append(ctx context.Context, sessionID, userMessage, aiResponse string) error {
	db, err := r.handle()
	if err != nil {
		return err
	}

	query := db.Rebind(`INSERT INTO chat_history (session_id, user_message, ai_response, created_at)
		VALUES (?, ?, ?, ?)`)
	if _, err := db.ExecContext(ctx, query, sessionID, userMessage, aiResponse, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to append chat turn: %w", err)
	}
	return nil
}

// Recent returns the last limit turns for a session, oldest first.
// An empty sessionID reads across all sessions.
func (r *HistoryRepository) Recent(ctx context.Context, sessionID string, limit int) ([]model.Turn, error) {
	db, err := r.handle()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []model.Turn{}, nil
	}

	var (
		query string
		args  []interface{}
	)
	if sessionID != "" {
		query = `SELECT id, session_id, user_message, ai_response, created_at
			FROM chat_history WHERE session_id = ? ORDER BY id DESC LIMIT ?`
		args = []interface{}{sessionID, limit}
	} else {
		query = `SELECT id, session_id, user_message, ai_response, created_at
			FROM chat_history ORDER BY id DESC LIMIT ?`
		args = []interface{}{limit}
	}

	turns := []model.Turn{}
	if err := db.SelectContext(ctx, &turns, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to fetch chat history: %w", err)
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Latest returns the newest turn for a session, or nil when there is none.
func (r *HistoryRepository) Latest(ctx context.Context, sessionID string) (*model.Turn, error) {
	turns, err := r.Recent(ctx, sessionID, 1)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return nil, nil
	}
	return &turns[0], nil
}

// Clear deletes every turn of a session.
func (r *HistoryRepository) Clear(ctx context.Context, sessionID string) (bool, error) {
	db, err := r.handle()
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM chat_history WHERE session_id = ?`), sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to clear chat history: %w", err)
	}
	if _, err := res.RowsAffected(); err != nil {
		return false, fmt.Errorf("failed to clear chat history: %w", err)
	}
	return true, nil
}
