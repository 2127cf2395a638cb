package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/rental-marketplace/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRepository interface {
	Create(ctx context.Context, tx *gorm.DB, conversation *models.Conversation) error
	FindByID(ctx context.Context, id uint) (*models.Conversation, error)
	FindByBookingID(ctx context.Context, tx *gorm.DB, bookingID uint) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error)
	TouchLastMessage(ctx context.Context, id uint, at time.Time) error
	Delete(ctx context.Context, id uint) error
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create inserts the conversation together with its participant rows. Without
// a caller transaction it opens its own so both inserts land or neither does.
func (r *conversationRepository) Create(ctx context.Context, tx *gorm.DB, conversation *models.Conversation) error {
	if tx == nil {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return r.create(ctx, tx, conversation)
		})
	}
	return r.create(ctx, tx, conversation)
}

func (r *conversationRepository) create(ctx context.Context, tx *gorm.DB, conversation *models.Conversation) error {
	db := tx.WithContext(ctx)
	participants := conversation.Participants
	conversation.Participants = nil
	defer func() { conversation.Participants = participants }()

	if err := db.Omit(clause.Associations).Create(conversation).Error; err != nil {
		return err
	}
	for i := range participants {
		participants[i].ConversationID = conversation.ID
		if participants[i].JoinedAt.IsZero() {
			participants[i].JoinedAt = time.Now().UTC()
		}
	}
	if len(participants) > 0 {
		if err := db.Omit(clause.Associations).Create(&participants).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *conversationRepository) FindByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := r.db.WithContext(ctx).
		Preload("Participants.User").
		First(&conversation, id).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *conversationRepository) FindByBookingID(ctx context.Context, tx *gorm.DB, bookingID uint) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := r.conn(tx).WithContext(ctx).
		Preload("Participants").
		Where("booking_id = ?", bookingID).
		First(&conversation).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *conversationRepository) ListByUser(ctx context.Context, userID uint) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants.User").
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ?", userID).
		Order("COALESCE(conversations.last_message_at, conversations.created_at) DESC, conversations.id DESC").
		Find(&conversations).Error
	return conversations, err
}

func (r *conversationRepository) IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *conversationRepository) TouchLastMessage(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("last_message_at", at).Error
}

func (r *conversationRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Conversation{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
