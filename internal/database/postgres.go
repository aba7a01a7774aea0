package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"govchat/internal/models"
	"govchat/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database successfully")
	return &PostgresStore{pool: pool}, nil
}

func (db *PostgresStore) Close() error {
	db.pool.Close()
	return nil
}

// Migrate creates the message log and participant directory tables. Messages
// are indexed on (sender_id, receiver_id) for read-state updates and on
// timestamp for ordered history scans.
func (db *PostgresStore) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			sender_id VARCHAR(64) NOT NULL,
			receiver_id VARCHAR(64) NOT NULL,
			appointment_id VARCHAR(64) NOT NULL DEFAULT '',
			service_id VARCHAR(64) NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			is_read BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages (sender_id, receiver_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages (timestamp)`,

		`CREATE TABLE IF NOT EXISTS participants (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			role VARCHAR(10) NOT NULL DEFAULT 'user',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, query := range queries {
		if _, err := db.pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Message Store Implementation
func (db *PostgresStore) SaveMessage(ctx context.Context, senderID, receiverID, appointmentID, serviceID, content string) (*models.Message, error) {
	query := `
		INSERT INTO messages (sender_id, receiver_id, appointment_id, service_id, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, timestamp`

	msg := &models.Message{
		SenderID:      senderID,
		ReceiverID:    receiverID,
		AppointmentID: appointmentID,
		ServiceID:     serviceID,
		Content:       content,
	}

	var id int64
	err := db.pool.QueryRow(ctx, query, senderID, receiverID, appointmentID, serviceID, content).Scan(&id, &msg.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	msg.ID = strconv.FormatInt(id, 10)

	return msg, nil
}

func (db *PostgresStore) History(ctx context.Context, participantID string, direction Direction) ([]*models.Message, error) {
	var query string
	switch direction {
	case DirectionInbound:
		// Messages the participant sent to staff.
		query = `
			SELECT id, sender_id, receiver_id, appointment_id, service_id, content, timestamp, is_read
			FROM messages
			WHERE sender_id = $1 AND (receiver_id = 'admin' OR receiver_id ~ '^[0-9]{1,4}$')
			ORDER BY timestamp ASC`
	case DirectionOutbound:
		query = `
			SELECT id, sender_id, receiver_id, appointment_id, service_id, content, timestamp, is_read
			FROM messages
			WHERE receiver_id = $1 AND (sender_id = 'admin' OR sender_id ~ '^[0-9]{1,4}$')
			ORDER BY timestamp ASC`
	case DirectionBoth:
		query = `
			SELECT id, sender_id, receiver_id, appointment_id, service_id, content, timestamp, is_read
			FROM messages
			WHERE sender_id = $1 OR receiver_id = $1
			ORDER BY timestamp ASC`
	default:
		return nil, fmt.Errorf("invalid direction %q", direction)
	}

	rows, err := db.pool.Query(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var id int64
		msg := &models.Message{}
		if err := rows.Scan(&id, &msg.SenderID, &msg.ReceiverID, &msg.AppointmentID, &msg.ServiceID, &msg.Content, &msg.Timestamp, &msg.IsRead); err != nil {
			return nil, err
		}
		msg.ID = strconv.FormatInt(id, 10)
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (db *PostgresStore) MarkRead(ctx context.Context, readerID, senderID string) (int64, error) {
	query := `
		UPDATE messages SET is_read = TRUE
		WHERE sender_id = $1 AND receiver_id = $2 AND is_read = FALSE`

	tag, err := db.pool.Exec(ctx, query, senderID, readerID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}

	return tag.RowsAffected(), nil
}

// Participant Directory Implementation
func (db *PostgresStore) ListParticipants(ctx context.Context) ([]*models.Participant, error) {
	query := `SELECT id, name, role, created_at FROM participants ORDER BY name`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		p := &models.Participant{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Role, &p.CreatedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// GetParticipant looks up one directory entry by id.
func (db *PostgresStore) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	query := `SELECT id, name, role, created_at FROM participants WHERE id = $1`

	p := &models.Participant{}
	err := db.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Role, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return p, nil
}
