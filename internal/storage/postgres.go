package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/xaenox/mind-bot/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

// DSN renders the config as a lib/pq keyword/value connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(ctx context.Context, config DatabaseConfig) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db}

	if err := storage.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema(ctx context.Context) error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

func (s *PostgresStorage) SaveExchange(ctx context.Context, exchange *models.Exchange) error {
	if err := validateExchange(exchange); err != nil {
		return err
	}

	createdAt := exchange.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO exchanges (id, channel, user_id, language_code, tag, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.db.ExecContext(ctx, query,
		exchange.ID,
		string(exchange.Channel),
		exchange.UserID,
		exchange.LanguageCode,
		exchange.Tag,
		exchange.Confidence,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("error saving exchange: %w", err)
	}

	return nil
}

func (s *PostgresStorage) TagCounts(ctx context.Context) (map[string]int64, error) {
	query := `
		SELECT tag, COUNT(*)
		FROM exchanges
		GROUP BY tag`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying tag counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			tag string
			n   int64
		)
		if err := rows.Scan(&tag, &n); err != nil {
			return nil, fmt.Errorf("error scanning tag count: %w", err)
		}
		counts[tag] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag counts: %w", err)
	}

	return counts, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
