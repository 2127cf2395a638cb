package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/rental-marketplace/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	FindByID(ctx context.Context, id uint) (*models.Message, error)
	List(ctx context.Context, conversationID, beforeID uint, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, messageID, userID uint, at time.Time) (bool, error)
	MarkConversationRead(ctx context.Context, conversationID, userID uint, at time.Time) (int64, error)
	CountUnread(ctx context.Context, conversationID, userID uint) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(message).Error
}

func (r *messageRepository) FindByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).Preload("Reads").First(&message, id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// List returns up to limit messages older than beforeID (0 = newest), oldest first.
func (r *messageRepository) List(ctx context.Context, conversationID, beforeID uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	q := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Reads").
		Where("conversation_id = ?", conversationID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	if err := q.Order("id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkRead stores a receipt and reports whether it was new.
func (r *messageRepository) MarkRead(ctx context.Context, messageID, userID uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.MessageRead{MessageID: messageID, UserID: userID, ReadAt: at})
	return res.RowsAffected > 0, res.Error
}

// MarkConversationRead adds receipts for every message the user has not read and did not send.
func (r *messageRepository) MarkConversationRead(ctx context.Context, conversationID, userID uint, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		INSERT INTO message_reads (message_id, user_id, read_at)
		SELECT m.id, ?, ? FROM messages m
		WHERE m.conversation_id = ? AND m.sender_id <> ?
		AND NOT EXISTS (
			SELECT 1 FROM message_reads r WHERE r.message_id = m.id AND r.user_id = ?
		)`, userID, at, conversationID, userID, userID)
	return res.RowsAffected, res.Error
}

func (r *messageRepository) CountUnread(ctx context.Context, conversationID, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ?", conversationID, userID).
		Where("NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id = messages.id AND r.user_id = ?)", userID).
		Count(&count).Error
	return count, err
}
