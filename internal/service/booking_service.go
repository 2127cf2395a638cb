package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/internal/repository"
	"github.com/Eursukkul/rental-marketplace/pkg/logger"
	"github.com/Eursukkul/rental-marketplace/pkg/payment"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type BookingInput struct {
	StartDate time.Time
	EndDate   time.Time
	Guests    int
	Notes     string
}

type BookingService interface {
	CreateBooking(ctx context.Context, actor models.Actor, propertyID uint, in BookingInput) (*models.Booking, error)
	GetBooking(ctx context.Context, actor models.Actor, id uint) (*models.Booking, error)
	ListMyBookings(ctx context.Context, actor models.Actor, status *models.BookingStatus) ([]models.Booking, error)
	ListPropertyBookings(ctx context.Context, actor models.Actor, propertyID uint, status *models.BookingStatus) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, actor models.Actor, id uint, status models.BookingStatus) (*models.Booking, error)
	CancelBooking(ctx context.Context, actor models.Actor, id uint) (*models.Booking, error)

	CompleteEndedBookings(ctx context.Context) (int, error)
	ExpireStalePending(ctx context.Context, ttl time.Duration) (int, error)
}

type bookingService struct {
	bookingRepo      repository.BookingRepository
	propertyRepo     repository.PropertyRepository
	conversationRepo repository.ConversationRepository
	payments         payment.Gateway
	notifier         *Notifier
	now              func() time.Time
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	propertyRepo repository.PropertyRepository,
	conversationRepo repository.ConversationRepository,
	payments payment.Gateway,
	notifier *Notifier,
) BookingService {
	return &bookingService{
		bookingRepo:      bookingRepo,
		propertyRepo:     propertyRepo,
		conversationRepo: conversationRepo,
		payments:         payments,
		notifier:         notifier,
		now:              time.Now,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, actor models.Actor, propertyID uint, in BookingInput) (*models.Booking, error) {
	start, end := startOfDay(in.StartDate), startOfDay(in.EndDate)
	if !start.Before(end) {
		return nil, ErrInvalidDates
	}
	if start.Before(startOfDay(s.now())) {
		return nil, ErrDateInPast
	}

	var result *models.Booking
	var property *models.Property

	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Lock the property row so concurrent requests for it run one at a time
		p, err := s.propertyRepo.FindByIDForUpdate(ctx, tx, propertyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPropertyNotFound
			}
			return err
		}

		// 2. Business rules
		if p.OwnerID == actor.UserID {
			return ErrOwnProperty
		}
		if !p.IsAvailable || (p.AvailableFrom != nil && start.Before(startOfDay(*p.AvailableFrom))) {
			return ErrPropertyUnavailable
		}
		if in.Guests > p.MaxGuests {
			return ErrTooManyGuests
		}

		// 3. Overlap against PENDING/CONFIRMED bookings
		overlapping, err := s.bookingRepo.FindOverlapping(ctx, tx, p.ID, start, end)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return ErrBookingOverlap
		}

		// 4. Insert
		booking := &models.Booking{
			PropertyID:    p.ID,
			GuestID:       actor.UserID,
			StartDate:     start,
			EndDate:       end,
			Guests:        in.Guests,
			Currency:      p.Currency,
			Status:        models.StatusPending,
			PaymentStatus: models.PaymentUnpaid,
			Notes:         in.Notes,
		}
		booking.TotalPrice = bookingPrice(p.ListingType, p.Price, booking.Nights())
		if err := s.bookingRepo.Create(ctx, tx, booking); err != nil {
			return err
		}

		// 5. Guest and owner share a conversation for the booking
		conversation := &models.Conversation{
			PropertyID: &p.ID,
			BookingID:  &booking.ID,
			Participants: []models.ConversationParticipant{
				{UserID: actor.UserID},
				{UserID: p.OwnerID},
			},
		}
		if err := s.conversationRepo.Create(ctx, tx, conversation); err != nil {
			return fmt.Errorf("create booking conversation: %w", err)
		}

		booking.Property = p
		result = booking
		property = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"booking_id":  result.ID,
		"property_id": result.PropertyID,
		"guest_id":    result.GuestID,
	}).Info("Booking created")
	s.notifier.BookingCreated(ctx, result, property)
	return result, nil
}

func (s *bookingService) GetBooking(ctx context.Context, actor models.Actor, id uint) (*models.Booking, error) {
	b, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if !partyOf(actor, b).any() {
		return nil, ErrForbidden
	}
	return b, nil
}

func (s *bookingService) ListMyBookings(ctx context.Context, actor models.Actor, status *models.BookingStatus) ([]models.Booking, error) {
	return s.bookingRepo.ListByGuest(ctx, actor.UserID, status)
}

func (s *bookingService) ListPropertyBookings(ctx context.Context, actor models.Actor, propertyID uint, status *models.BookingStatus) ([]models.Booking, error) {
	p, err := s.propertyRepo.FindByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	if p.OwnerID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.bookingRepo.ListByProperty(ctx, propertyID, status)
}

func (s *bookingService) UpdateStatus(ctx context.Context, actor models.Actor, id uint, status models.BookingStatus) (*models.Booking, error) {
	var result *models.Booking

	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		party := partyOf(actor, b)
		if !party.any() {
			return ErrForbidden
		}
		rule, ok := bookingTransitions[b.Status][status]
		if !ok {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, b.Status, status)
		}
		if !rule.allows(party) {
			return ErrForbidden
		}

		now := s.now().UTC()
		switch status {
		case models.StatusCompleted:
			if now.Before(b.EndDate) {
				return ErrBookingNotEnded
			}
		case models.StatusCancelled:
			switch b.PaymentStatus {
			case models.PaymentPaid:
				if err := refundBooking(ctx, s.payments, b); err != nil {
					return err
				}
			case models.PaymentPending:
				s.cancelIntent(ctx, b)
			}
			b.CancelledAt = &now
		}

		b.Status = status
		if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"booking_id": result.ID,
		"status":     result.Status,
		"actor_id":   actor.UserID,
	}).Info("Booking status updated")

	switch result.Status {
	case models.StatusConfirmed:
		s.notifier.BookingConfirmed(ctx, result)
	case models.StatusCancelled:
		s.notifier.BookingCancelled(ctx, result)
	}
	return result, nil
}

// cancelIntent stops an uncaptured payment. When the provider refuses, the
// intent may already have succeeded and the payment webhook refunds it.
func (s *bookingService) cancelIntent(ctx context.Context, b *models.Booking) {
	if b.PaymentIntentID == nil || *b.PaymentIntentID == "" {
		return
	}
	if err := s.payments.CancelPaymentIntent(ctx, *b.PaymentIntentID); err != nil {
		logger.Log.WithError(err).WithField("booking_id", b.ID).Warn("Failed to cancel payment intent")
		return
	}
	b.PaymentStatus = models.PaymentUnpaid
}

func (s *bookingService) CancelBooking(ctx context.Context, actor models.Actor, id uint) (*models.Booking, error) {
	return s.UpdateStatus(ctx, actor, id, models.StatusCancelled)
}

// CompleteEndedBookings marks CONFIRMED bookings whose end date has passed as COMPLETED.
func (s *bookingService) CompleteEndedBookings(ctx context.Context) (int, error) {
	ended, err := s.bookingRepo.ListEndedBefore(ctx, models.StatusConfirmed, s.now().UTC())
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, candidate := range ended {
		err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			b, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, candidate.ID)
			if err != nil {
				return err
			}
			if b.Status != models.StatusConfirmed {
				return nil
			}
			b.Status = models.StatusCompleted
			if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
				return err
			}
			completed++
			return nil
		})
		if err != nil {
			logger.Log.WithError(err).WithField("booking_id", candidate.ID).Error("Failed to complete booking")
		}
	}
	return completed, nil
}

// ExpireStalePending cancels unpaid PENDING bookings created more than ttl ago.
func (s *bookingService) ExpireStalePending(ctx context.Context, ttl time.Duration) (int, error) {
	stale, err := s.bookingRepo.ListStalePending(ctx, s.now().UTC().Add(-ttl))
	if err != nil {
		return 0, err
	}

	expired := make([]*models.Booking, 0, len(stale))
	for _, candidate := range stale {
		err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			b, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, candidate.ID)
			if err != nil {
				return err
			}
			if b.Status != models.StatusPending ||
				(b.PaymentStatus != models.PaymentUnpaid && b.PaymentStatus != models.PaymentFailed) {
				return nil
			}
			now := s.now().UTC()
			b.Status = models.StatusCancelled
			b.CancelledAt = &now
			if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
				return err
			}
			expired = append(expired, b)
			return nil
		})
		if err != nil {
			logger.Log.WithError(err).WithField("booking_id", candidate.ID).Error("Failed to expire booking")
		}
	}

	for _, b := range expired {
		s.notifier.BookingCancelled(ctx, b)
	}
	return len(expired), nil
}
