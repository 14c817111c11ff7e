package chat

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/ruteri/go-mixcascade/mixnet"
)

// PostgresJournal implements Journal with PostgreSQL persistence.
type PostgresJournal struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresJournal creates a new PostgreSQL-backed journal.
func NewPostgresJournal(config *PostgresConfig) (*PostgresJournal, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	journal := &PostgresJournal{db: db}
	if err := journal.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return journal, nil
}

func (j *PostgresJournal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS deliveries (
		message_id VARCHAR(64) PRIMARY KEY,
		conversation VARCHAR(160) NOT NULL,
		sender_id VARCHAR(64) NOT NULL,
		recipient_id VARCHAR(64) NOT NULL,
		kind VARCHAR(16) NOT NULL,
		ciphertext BYTEA NOT NULL,
		delivered_at_ms BIGINT NOT NULL,
		mixed BOOLEAN NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_deliveries_conversation ON deliveries(conversation, delivered_at_ms);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := j.db.ExecContext(ctx, schema)
	return err
}

// Record persists a delivery and prunes the conversation down to
// HistoryCap entries.
func (j *PostgresJournal) Record(d *Delivery) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
	INSERT INTO deliveries
		(message_id, conversation, sender_id, recipient_id, kind, ciphertext, delivered_at_ms, mixed)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (message_id) DO NOTHING
	`

	_, err := j.db.ExecContext(ctx, query,
		d.MessageID,
		d.Conversation,
		d.SenderID,
		d.RecipientID,
		string(d.Kind),
		d.Ciphertext,
		d.DeliveredAtMs,
		d.Mixed,
	)
	if err != nil {
		return err
	}

	prune := `
	DELETE FROM deliveries
	WHERE conversation = $1 AND message_id NOT IN (
		SELECT message_id FROM deliveries
		WHERE conversation = $1
		ORDER BY delivered_at_ms DESC
		LIMIT $2
	)
	`
	_, err = j.db.ExecContext(ctx, prune, d.Conversation, HistoryCap)
	return err
}

// History returns the most recent deliveries for a conversation in
// delivery order.
func (j *PostgresJournal) History(conversation string, limit int) ([]*Delivery, error) {
	if limit <= 0 || limit > HistoryCap {
		limit = HistoryCap
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := j.db.QueryContext(ctx, `
		SELECT message_id, conversation, sender_id, recipient_id, kind, ciphertext, delivered_at_ms, mixed
		FROM deliveries
		WHERE conversation = $1
		ORDER BY delivered_at_ms DESC
		LIMIT $2
	`, conversation, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Delivery
	for rows.Next() {
		var (
			d    Delivery
			kind string
		)
		if err := rows.Scan(&d.MessageID, &d.Conversation, &d.SenderID, &d.RecipientID, &kind, &d.Ciphertext, &d.DeliveredAtMs, &d.Mixed); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		d.Kind = mixnet.MessageKind(kind)
		result = append(result, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query, oldest-first for callers.
	for i, k := 0, len(result)-1; i < k; i, k = i+1, k-1 {
		result[i], result[k] = result[k], result[i]
	}
	return result, nil
}

// Close closes the database connection.
func (j *PostgresJournal) Close() error {
	return j.db.Close()
}
