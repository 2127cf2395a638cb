package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/internal/repository"
	"github.com/Eursukkul/rental-marketplace/pkg/logger"
	"github.com/Eursukkul/rental-marketplace/pkg/mailer"
)

const dateLayout = "2006-01-02"

// Notifier emails booking parties. Delivery errors are logged and dropped.
type Notifier struct {
	mailer   mailer.Mailer
	userRepo repository.UserRepository
}

func NewNotifier(m mailer.Mailer, userRepo repository.UserRepository) *Notifier {
	return &Notifier{mailer: m, userRepo: userRepo}
}

func (n *Notifier) BookingCreated(ctx context.Context, b *models.Booking, p *models.Property) {
	if n == nil || p == nil {
		return
	}
	n.send(ctx, p.OwnerID, fmt.Sprintf("New booking request for %s", p.Title),
		fmt.Sprintf("You have a new booking request #%d for %s from %s to %s (%d guests). Total: %.2f %s.",
			b.ID, p.Title, b.StartDate.Format(dateLayout), b.EndDate.Format(dateLayout), b.Guests, b.TotalPrice, b.Currency))
}

func (n *Notifier) BookingConfirmed(ctx context.Context, b *models.Booking) {
	if n == nil {
		return
	}
	n.send(ctx, b.GuestID, fmt.Sprintf("Booking #%d confirmed", b.ID),
		fmt.Sprintf("Your booking #%d from %s to %s is confirmed.",
			b.ID, b.StartDate.Format(dateLayout), b.EndDate.Format(dateLayout)))
}

func (n *Notifier) BookingCancelled(ctx context.Context, b *models.Booking) {
	if n == nil {
		return
	}
	text := fmt.Sprintf("Your booking #%d from %s to %s has been cancelled.",
		b.ID, b.StartDate.Format(dateLayout), b.EndDate.Format(dateLayout))
	if b.PaymentStatus == models.PaymentRefunded {
		text += " Your payment has been refunded."
	}
	n.send(ctx, b.GuestID, fmt.Sprintf("Booking #%d cancelled", b.ID), text)
}

func (n *Notifier) send(ctx context.Context, userID uint, subject, text string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	user, err := n.userRepo.FindByID(ctx, userID)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID).Warn("Notification skipped, user not found")
		return
	}
	msg := mailer.Message{
		ToName:  user.FirstName + " " + user.LastName,
		ToEmail: user.Email,
		Subject: subject,
		Text:    text,
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		logger.Log.WithError(err).WithField("user_id", userID).Error("Failed to send notification email")
	}
}
