package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/akwn2/dnd-ai-tutorial/internal/model"
)

const appendAttempts = 3

type messageRow struct {
	MessageID string    `gorm:"primaryKey;size:64"`
	SessionID string    `gorm:"size:191;not null;uniqueIndex:idx_messages_session_sequence,priority:1"`
	Sequence  int64     `gorm:"not null;uniqueIndex:idx_messages_session_sequence,priority:2"`
	Role      string    `gorm:"size:32;not null"`
	Parts     string    `gorm:"type:text;not null"`
	Timestamp time.Time `gorm:"not null"`
}

func (messageRow) TableName() string {
	return "messages"
}

func (r messageRow) toMessage() (model.Message, error) {
	msg := model.Message{
		ID:        r.MessageID,
		SessionID: r.SessionID,
		Sequence:  r.Sequence,
		Role:      r.Role,
		Timestamp: r.Timestamp,
	}
	if err := decodeParts(&msg, r.Parts); err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

// GormStore implements TranscriptStore on a relational database through gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the database and migrates the messages table.
func NewGormStore(driver, dsn string) (*GormStore, error) {
	db, err := OpenGorm(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: open gorm store: %w", err)
	}

	store := &GormStore{db: db}
	if err := db.AutoMigrate(&messageRow{}); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("repository: migrate: %w", err)
	}
	return store, nil
}

func (s *GormStore) Append(ctx context.Context, sessionID string, msg model.Message) (model.Message, error) {
	msg, parts, err := prepare(sessionID, msg)
	if err != nil {
		return model.Message{}, fmt.Errorf("repository: append to session %q: %w", sessionID, err)
	}

	// Two writers can read the same MAX(sequence); the unique index rejects
	// the loser, which then retries with a fresh sequence.
	for attempt := 1; ; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var maxSeq int64
			if err := tx.Model(&messageRow{}).
				Where("session_id = ?", sessionID).
				Select("COALESCE(MAX(sequence), 0)").
				Scan(&maxSeq).Error; err != nil {
				return fmt.Errorf("sequence lookup: %w", err)
			}

			msg.Sequence = maxSeq + 1
			row := messageRow{
				MessageID: msg.ID,
				SessionID: sessionID,
				Sequence:  msg.Sequence,
				Role:      msg.Role,
				Parts:     string(parts),
				Timestamp: msg.Timestamp,
			}
			return tx.Create(&row).Error
		})
		if err == nil {
			return msg, nil
		}
		if attempt >= appendAttempts || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return model.Message{}, fmt.Errorf("repository: append to session %q: %w", sessionID, err)
		}
	}
}

func (s *GormStore) Load(ctx context.Context, sessionID string) ([]model.Message, error) {
	var rows []messageRow
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sequence ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("repository: load session %q: %w", sessionID, err)
	}

	messages := make([]model.Message, 0, len(rows))
	for _, row := range rows {
		msg, err := row.toMessage()
		if err != nil {
			return nil, fmt.Errorf("repository: load session %q: %w", sessionID, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("repository: get sql db: %w", err)
	}
	return sqlDB.Close()
}
