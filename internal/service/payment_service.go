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

type PaymentIntentResult struct {
	ClientSecret    string
	PaymentIntentID string
	Amount          float64
	Currency        string
	Booking         *models.Booking
}

type PaymentService interface {
	CreateIntent(ctx context.Context, actor models.Actor, bookingID uint) (*PaymentIntentResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	Refund(ctx context.Context, actor models.Actor, bookingID uint) (*models.Booking, error)
	GetPayment(ctx context.Context, actor models.Actor, bookingID uint) (*models.Booking, error)
}

type paymentService struct {
	bookingRepo repository.BookingRepository
	gateway     payment.Gateway
	notifier    *Notifier
	now         func() time.Time
}

func NewPaymentService(bookingRepo repository.BookingRepository, gateway payment.Gateway, notifier *Notifier) PaymentService {
	return &paymentService{
		bookingRepo: bookingRepo,
		gateway:     gateway,
		notifier:    notifier,
		now:         time.Now,
	}
}

func (s *paymentService) CreateIntent(ctx context.Context, actor models.Actor, bookingID uint) (*PaymentIntentResult, error) {
	var result *PaymentIntentResult

	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if b.GuestID != actor.UserID {
			return ErrForbidden
		}
		if b.Status != models.StatusPending ||
			b.PaymentStatus == models.PaymentPaid || b.PaymentStatus == models.PaymentRefunded {
			return ErrNotPayable
		}

		intent, err := s.gateway.CreatePaymentIntent(ctx, b.ID, b.TotalPrice, b.Currency)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPaymentFailed, err)
		}

		b.PaymentIntentID = &intent.ID
		b.PaymentStatus = models.PaymentPending
		if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
			return err
		}

		result = &PaymentIntentResult{
			ClientSecret:    intent.ClientSecret,
			PaymentIntentID: intent.ID,
			Amount:          payment.FromMinor(intent.Amount, intent.Currency),
			Currency:        intent.Currency,
			Booking:         b,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"booking_id":        bookingID,
		"payment_intent_id": result.PaymentIntentID,
	}).Info("Payment intent created")
	return result, nil
}

func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentsDisabled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	log := logger.Log.WithFields(logrus.Fields{
		"event_id":          ev.ID,
		"event_type":        ev.Type,
		"payment_intent_id": ev.PaymentIntentID,
	})

	switch ev.Type {
	case payment.EventPaymentSucceeded, payment.EventPaymentFailed, payment.EventChargeRefunded:
	default:
		log.Info("Unhandled payment webhook event")
		return nil
	}

	var updated *models.Booking
	err = s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := s.findForEvent(ctx, tx, ev)
		if err != nil {
			return err
		}
		if b == nil {
			log.Warn("Payment webhook for unknown booking")
			return nil
		}

		now := s.now().UTC()
		switch ev.Type {
		case payment.EventPaymentSucceeded:
			if b.PaymentStatus == models.PaymentPaid {
				return nil
			}
			currency := ev.Currency
			if currency == "" {
				currency = b.Currency
			}
			b.PaymentStatus = models.PaymentPaid
			b.AmountPaid = payment.FromMinor(ev.AmountMinor, currency)
			if b.AmountPaid == 0 {
				b.AmountPaid = b.TotalPrice
			}
			b.PaidAt = &now
			if b.PaymentIntentID == nil {
				b.PaymentIntentID = &ev.PaymentIntentID
			}
			switch b.Status {
			case models.StatusPending:
				b.Status = models.StatusConfirmed
			case models.StatusCancelled:
				// the dates are already released, so the charge goes back
				if err := refundBooking(ctx, s.gateway, b); err != nil {
					log.WithError(err).WithField("booking_id", b.ID).Error("Refund of payment on cancelled booking failed")
				}
			default:
				log.WithField("status", b.Status).Warn("Payment captured for a booking that is no longer pending")
			}
		case payment.EventPaymentFailed:
			if b.PaymentStatus == models.PaymentPaid || b.PaymentStatus == models.PaymentRefunded {
				return nil
			}
			b.PaymentStatus = models.PaymentFailed
		case payment.EventChargeRefunded:
			if b.PaymentStatus == models.PaymentRefunded {
				return nil
			}
			b.PaymentStatus = models.PaymentRefunded
			if ev.RefundID != "" {
				b.RefundID = ev.RefundID
			}
			if b.Status == models.StatusPending || b.Status == models.StatusConfirmed {
				b.Status = models.StatusCancelled
				b.CancelledAt = &now
			}
		}

		if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return err
	}
	if updated == nil {
		return nil
	}

	log.WithFields(logrus.Fields{
		"booking_id":     updated.ID,
		"status":         updated.Status,
		"payment_status": updated.PaymentStatus,
	}).Info("Booking payment updated from webhook")

	switch {
	case ev.Type == payment.EventPaymentSucceeded && updated.Status == models.StatusConfirmed:
		s.notifier.BookingConfirmed(ctx, updated)
	case ev.Type == payment.EventChargeRefunded && updated.Status == models.StatusCancelled:
		s.notifier.BookingCancelled(ctx, updated)
	}
	return nil
}

// findForEvent resolves the booking by payment intent, then by metadata id.
// A nil booking with nil error means neither matched.
func (s *paymentService) findForEvent(ctx context.Context, tx *gorm.DB, ev *payment.WebhookEvent) (*models.Booking, error) {
	if ev.PaymentIntentID != "" {
		b, err := s.bookingRepo.FindByPaymentIntent(ctx, tx, ev.PaymentIntentID)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if ev.BookingID != 0 {
		b, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, ev.BookingID)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func (s *paymentService) Refund(ctx context.Context, actor models.Actor, bookingID uint) (*models.Booking, error) {
	var result *models.Booking

	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		party := partyOf(actor, b)
		if !party.owner && !party.admin {
			return ErrForbidden
		}
		if b.PaymentStatus != models.PaymentPaid {
			return ErrNotRefundable
		}

		if err := refundBooking(ctx, s.gateway, b); err != nil {
			return err
		}
		if b.Status == models.StatusPending || b.Status == models.StatusConfirmed {
			now := s.now().UTC()
			b.Status = models.StatusCancelled
			b.CancelledAt = &now
		}
		if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.WithField("booking_id", bookingID).Info("Booking refunded")
	s.notifier.BookingCancelled(ctx, result)
	return result, nil
}

func (s *paymentService) GetPayment(ctx context.Context, actor models.Actor, bookingID uint) (*models.Booking, error) {
	b, err := s.bookingRepo.FindByID(ctx, bookingID)
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

// refundBooking refunds the captured payment and records it on b.
func refundBooking(ctx context.Context, gateway payment.Gateway, b *models.Booking) error {
	if b.PaymentIntentID == nil || *b.PaymentIntentID == "" {
		return ErrNotRefundable
	}
	r, err := gateway.Refund(ctx, *b.PaymentIntentID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}
	b.PaymentStatus = models.PaymentRefunded
	b.RefundID = r.ID
	return nil
}
