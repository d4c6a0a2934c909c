// Package repository provides data access implementations
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/abelzeko/dengue-watch/internal/entities"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// FeedbackRepository stores comments left on the fumigation page
type FeedbackRepository interface {
	SaveFeedback(ctx context.Context, fb entities.Feedback) (int64, error)
	ListFeedback(ctx context.Context, city string, limit int) ([]entities.Feedback, error)
}

// SubscriberRepository stores the chats that receive community alerts
type SubscriberRepository interface {
	AddSubscriber(ctx context.Context, s entities.Subscriber) error
	RemoveSubscriber(ctx context.Context, chatID int64) (bool, error)
	ListSubscribers(ctx context.Context) ([]entities.Subscriber, error)
}

// SQLRepository implements both repositories on database/sql
type SQLRepository struct {
	db     *sql.DB
	driver string
	logger *zap.SugaredLogger
}

var schemas = map[string]string{
	DriverSQLite: `
	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		city TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_city ON feedback(city);
	CREATE TABLE IF NOT EXISTS subscribers (
		chat_id INTEGER PRIMARY KEY,
		user_name TEXT NOT NULL DEFAULT '',
		subscribed_at DATETIME NOT NULL
	);`,
	DriverPostgres: `
	CREATE TABLE IF NOT EXISTS feedback (
		id SERIAL PRIMARY KEY,
		city TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_city ON feedback(city);
	CREATE TABLE IF NOT EXISTS subscribers (
		chat_id BIGINT PRIMARY KEY,
		user_name TEXT NOT NULL DEFAULT '',
		subscribed_at TIMESTAMPTZ NOT NULL
	);`,
}

// NewSQLRepository opens the database and creates the tables. For sqlite3 an
// empty dsn means data/dengue.db
func NewSQLRepository(driver, dsn string, logger *zap.SugaredLogger) (*SQLRepository, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if driver == DriverSQLite && dsn == "" {
		dbDir := "data"
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = filepath.Join(dbDir, "dengue.db")
	}

	logger.Infof("Opening %s database", driver)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLRepository{db: db, driver: driver, logger: logger}, nil
}

// Close closes the database connection
func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres
func (r *SQLRepository) rebind(query string) string {
	if r.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// SaveFeedback stores a feedback message and returns its id
func (r *SQLRepository) SaveFeedback(ctx context.Context, fb entities.Feedback) (int64, error) {
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now()
	}
	fb.CreatedAt = fb.CreatedAt.UTC()

	if r.driver == DriverPostgres {
		var id int64
		err := r.db.QueryRowContext(ctx,
			`INSERT INTO feedback(city, message, created_at) VALUES($1, $2, $3) RETURNING id`,
			fb.City, fb.Message, fb.CreatedAt,
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("failed to insert feedback: %w", err)
		}
		return id, nil
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO feedback(city, message, created_at) VALUES(?, ?, ?)`,
		fb.City, fb.Message, fb.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert feedback: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read feedback id: %w", err)
	}
	r.logger.Debugf("Saved feedback %d for %s", id, fb.City)
	return id, nil
}

// ListFeedback returns the newest feedback first, optionally for one city
func (r *SQLRepository) ListFeedback(ctx context.Context, city string, limit int) ([]entities.Feedback, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, city, message, created_at FROM feedback`
	args := []interface{}{}
	if city != "" {
		query += ` WHERE city = ?`
		args = append(args, city)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var result []entities.Feedback
	for rows.Next() {
		var fb entities.Feedback
		if err := rows.Scan(&fb.ID, &fb.City, &fb.Message, &fb.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return result, nil
}

// AddSubscriber subscribes a chat, refreshing the user name if already subscribed
func (r *SQLRepository) AddSubscriber(ctx context.Context, s entities.Subscriber) error {
	if s.SubscribedAt.IsZero() {
		s.SubscribedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, r.rebind(`
		INSERT INTO subscribers(chat_id, user_name, subscribed_at)
		VALUES(?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
		user_name=excluded.user_name`),
		s.ChatID, s.UserName, s.SubscribedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to add subscriber %d: %w", s.ChatID, err)
	}
	return nil
}

// RemoveSubscriber unsubscribes a chat and reports whether it was subscribed
func (r *SQLRepository) RemoveSubscriber(ctx context.Context, chatID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM subscribers WHERE chat_id = ?`), chatID)
	if err != nil {
		return false, fmt.Errorf("failed to remove subscriber %d: %w", chatID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// ListSubscribers returns all subscribers, oldest first
func (r *SQLRepository) ListSubscribers(ctx context.Context) ([]entities.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT chat_id, user_name, subscribed_at FROM subscribers ORDER BY subscribed_at, chat_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	defer rows.Close()

	var result []entities.Subscriber
	for rows.Next() {
		var s entities.Subscriber
		if err := rows.Scan(&s.ChatID, &s.UserName, &s.SubscribedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return result, nil
}

var (
	_ FeedbackRepository   = (*SQLRepository)(nil)
	_ SubscriberRepository = (*SQLRepository)(nil)
)
