package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/internal/repository"
	"github.com/Eursukkul/rental-marketplace/pkg/logger"
	"gorm.io/gorm"
)

// Socket event names emitted to conversation rooms.
const (
	EventNewMessage  = "newMessage"
	EventMessageRead = "messageRead"
	EventUserTyping  = "userTyping"
)

const (
	defaultMessagePage = 50
	maxMessagePage     = 200
)

// Broadcaster delivers an event to every socket joined to a conversation room.
type Broadcaster interface {
	Broadcast(conversationID uint, event string, data any)
}

type ConversationInput struct {
	ParticipantIDs []uint
	PropertyID     *uint
	BookingID      *uint
	InitialMessage string
}

type ConversationSummary struct {
	Conversation models.Conversation
	UnreadCount  int64
}

// ReadReceipt is the payload of a messageRead event.
type ReadReceipt struct {
	ConversationID uint      `json:"conversation_id"`
	MessageID      uint      `json:"message_id,omitempty"`
	UserID         uint      `json:"user_id"`
	ReadAt         time.Time `json:"read_at"`
	Count          int64     `json:"count"`
}

type MessagingService interface {
	CreateConversation(ctx context.Context, actor models.Actor, in ConversationInput) (*models.Conversation, error)
	ListConversations(ctx context.Context, actor models.Actor) ([]ConversationSummary, error)
	GetConversation(ctx context.Context, actor models.Actor, id uint) (*models.Conversation, error)
	DeleteConversation(ctx context.Context, actor models.Actor, id uint) error

	ListMessages(ctx context.Context, actor models.Actor, conversationID, beforeID uint, limit int) ([]models.Message, error)
	SendMessage(ctx context.Context, actor models.Actor, conversationID uint, content string) (*models.Message, error)
	MarkConversationRead(ctx context.Context, actor models.Actor, conversationID uint) (*ReadReceipt, error)
	MarkMessageRead(ctx context.Context, actor models.Actor, messageID uint) (*ReadReceipt, error)

	CanJoin(ctx context.Context, userID, conversationID uint) (bool, error)
}

type messagingService struct {
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	userRepo         repository.UserRepository
	bookingRepo      repository.BookingRepository
	propertyRepo     repository.PropertyRepository
	broadcaster      Broadcaster
}

func NewMessagingService(
	conversationRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	bookingRepo repository.BookingRepository,
	propertyRepo repository.PropertyRepository,
	broadcaster Broadcaster,
) MessagingService {
	return &messagingService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		bookingRepo:      bookingRepo,
		propertyRepo:     propertyRepo,
		broadcaster:      broadcaster,
	}
}

func (s *messagingService) CreateConversation(ctx context.Context, actor models.Actor, in ConversationInput) (*models.Conversation, error) {
	if in.BookingID != nil {
		return s.bookingConversation(ctx, actor, *in.BookingID, in.InitialMessage)
	}

	ids := uniqueIDs(append([]uint{actor.UserID}, in.ParticipantIDs...))
	if len(ids) < 2 {
		return nil, ErrInvalidParticipants
	}
	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(users) != len(ids) {
		return nil, ErrInvalidParticipants
	}

	if in.PropertyID != nil {
		if _, err := s.propertyRepo.FindByID(ctx, *in.PropertyID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPropertyNotFound
			}
			return nil, err
		}
	}

	conversation := &models.Conversation{PropertyID: in.PropertyID}
	for _, id := range ids {
		conversation.Participants = append(conversation.Participants, models.ConversationParticipant{UserID: id})
	}
	if err := s.conversationRepo.Create(ctx, nil, conversation); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	if strings.TrimSpace(in.InitialMessage) != "" {
		if _, err := s.SendMessage(ctx, actor, conversation.ID, in.InitialMessage); err != nil {
			return nil, err
		}
	}
	return s.conversationRepo.FindByID(ctx, conversation.ID)
}

// bookingConversation returns the booking's conversation, creating it if an
// older booking has none. Only the guest, the owner or an admin may open it.
func (s *messagingService) bookingConversation(ctx context.Context, actor models.Actor, bookingID uint, initial string) (*models.Conversation, error) {
	b, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	party := partyOf(actor, b)
	if !party.any() {
		return nil, ErrForbidden
	}

	conversation, err := s.conversationRepo.FindByBookingID(ctx, nil, bookingID)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		conversation = &models.Conversation{
			PropertyID: &b.PropertyID,
			BookingID:  &b.ID,
			Participants: []models.ConversationParticipant{
				{UserID: b.GuestID},
				{UserID: b.Property.OwnerID},
			},
		}
		if err := s.conversationRepo.Create(ctx, nil, conversation); err != nil {
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, fmt.Errorf("create conversation: %w", err)
			}
			// lost a race with another request for the same booking
			if conversation, err = s.conversationRepo.FindByBookingID(ctx, nil, bookingID); err != nil {
				return nil, err
			}
		}
	default:
		return nil, err
	}

	if strings.TrimSpace(initial) != "" && conversation.HasParticipant(actor.UserID) {
		if _, err := s.SendMessage(ctx, actor, conversation.ID, initial); err != nil {
			return nil, err
		}
	}
	return s.conversationRepo.FindByID(ctx, conversation.ID)
}

func (s *messagingService) ListConversations(ctx context.Context, actor models.Actor) ([]ConversationSummary, error) {
	conversations, err := s.conversationRepo.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]ConversationSummary, len(conversations))
	for i, c := range conversations {
		unread, err := s.messageRepo.CountUnread(ctx, c.ID, actor.UserID)
		if err != nil {
			return nil, err
		}
		out[i] = ConversationSummary{Conversation: c, UnreadCount: unread}
	}
	return out, nil
}

func (s *messagingService) GetConversation(ctx context.Context, actor models.Actor, id uint) (*models.Conversation, error) {
	conversation, err := s.conversationRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if !conversation.HasParticipant(actor.UserID) && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return conversation, nil
}

func (s *messagingService) DeleteConversation(ctx context.Context, actor models.Actor, id uint) error {
	if _, err := s.GetConversation(ctx, actor, id); err != nil {
		return err
	}
	if err := s.conversationRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrConversationNotFound
		}
		return err
	}
	return nil
}

// member checks that actor participates in the conversation. Admins may read
// but never post.
func (s *messagingService) member(ctx context.Context, actor models.Actor, conversationID uint, allowAdmin bool) error {
	ok, err := s.conversationRepo.IsParticipant(ctx, conversationID, actor.UserID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := s.conversationRepo.FindByID(ctx, conversationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrConversationNotFound
		}
		return err
	}
	if allowAdmin && actor.IsAdmin() {
		return nil
	}
	return ErrForbidden
}

func (s *messagingService) ListMessages(ctx context.Context, actor models.Actor, conversationID, beforeID uint, limit int) ([]models.Message, error) {
	if err := s.member(ctx, actor, conversationID, true); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = defaultMessagePage
	}
	if limit > maxMessagePage {
		limit = maxMessagePage
	}
	return s.messageRepo.List(ctx, conversationID, beforeID, limit)
}

func (s *messagingService) SendMessage(ctx context.Context, actor models.Actor, conversationID uint, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if err := s.member(ctx, actor, conversationID, false); err != nil {
		return nil, err
	}

	message := &models.Message{
		ConversationID: conversationID,
		SenderID:       actor.UserID,
		Content:        content,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if err := s.conversationRepo.TouchLastMessage(ctx, conversationID, message.CreatedAt); err != nil {
		logger.Log.WithError(err).WithField("conversation_id", conversationID).Warn("Failed to update last message time")
	}

	s.broadcast(conversationID, EventNewMessage, message)
	return message, nil
}

func (s *messagingService) MarkConversationRead(ctx context.Context, actor models.Actor, conversationID uint) (*ReadReceipt, error) {
	if err := s.member(ctx, actor, conversationID, false); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	count, err := s.messageRepo.MarkConversationRead(ctx, conversationID, actor.UserID, now)
	if err != nil {
		return nil, err
	}
	receipt := &ReadReceipt{ConversationID: conversationID, UserID: actor.UserID, ReadAt: now, Count: count}
	if count > 0 {
		s.broadcast(conversationID, EventMessageRead, receipt)
	}
	return receipt, nil
}

func (s *messagingService) MarkMessageRead(ctx context.Context, actor models.Actor, messageID uint) (*ReadReceipt, error) {
	message, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if err := s.member(ctx, actor, message.ConversationID, false); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	receipt := &ReadReceipt{ConversationID: message.ConversationID, MessageID: message.ID, UserID: actor.UserID, ReadAt: now}
	if message.SenderID == actor.UserID {
		return receipt, nil
	}
	created, err := s.messageRepo.MarkRead(ctx, message.ID, actor.UserID, now)
	if err != nil {
		return nil, err
	}
	if created {
		receipt.Count = 1
		s.broadcast(message.ConversationID, EventMessageRead, receipt)
	}
	return receipt, nil
}

func (s *messagingService) CanJoin(ctx context.Context, userID, conversationID uint) (bool, error) {
	return s.conversationRepo.IsParticipant(ctx, conversationID, userID)
}

func (s *messagingService) broadcast(conversationID uint, event string, data any) {
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(conversationID, event, data)
	}
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
