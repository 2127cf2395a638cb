package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/Eursukkul/rental-marketplace/internal/service"
	"github.com/Eursukkul/rental-marketplace/pkg/logger"
	"github.com/robfig/cron/v3"
)

const (
	CompleteBookingsSpec = "@hourly"
	ExpireBookingsSpec   = "*/15 * * * *"
	jobTimeout           = 5 * time.Minute
)

// BookingLifecycle is the part of the booking service the jobs drive.
type BookingLifecycle interface {
	CompleteEndedBookings(ctx context.Context) (int, error)
	ExpireStalePending(ctx context.Context, ttl time.Duration) (int, error)
}

var _ BookingLifecycle = (service.BookingService)(nil)

// NewScheduler returns a UTC cron with the booking lifecycle jobs registered; call Start.
func NewScheduler(bookings BookingLifecycle, pendingTTL time.Duration) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))

	if _, err := c.AddFunc(CompleteBookingsSpec, func() { CompleteEnded(bookings) }); err != nil {
		return nil, fmt.Errorf("schedule booking completion: %w", err)
	}
	if _, err := c.AddFunc(ExpireBookingsSpec, func() { ExpirePending(bookings, pendingTTL) }); err != nil {
		return nil, fmt.Errorf("schedule pending expiry: %w", err)
	}
	return c, nil
}

func CompleteEnded(bookings BookingLifecycle) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := bookings.CompleteEndedBookings(ctx)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to complete ended bookings")
		return
	}
	if n > 0 {
		logger.Log.WithField("count", n).Info("Completed ended bookings")
	}
}

func ExpirePending(bookings BookingLifecycle, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := bookings.ExpireStalePending(ctx, ttl)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to expire pending bookings")
		return
	}
	if n > 0 {
		logger.Log.WithField("count", n).Info("Expired unpaid pending bookings")
	}
}
