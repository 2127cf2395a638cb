package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/pkg/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pendingBooking books two nights at 80 for a fresh guest.
func pendingBooking(t *testing.T, env *testEnv) (guest, owner models.Actor, b *models.Booking) {
	t.Helper()
	owner = env.user(t, models.RoleLandlord)
	guest = env.user(t, models.RoleUser)
	p := env.property(t, owner, models.ListingShortTerm, 80, 2)
	b, err := env.bookingService().CreateBooking(context.Background(), guest, p.ID, bookingInput("2030-03-01", "2030-03-03", 1))
	require.NoError(t, err)
	return guest, owner, b
}

func TestCreateIntent(t *testing.T) {
	env := newTestEnv(t)
	guest, owner, b := pendingBooking(t, env)
	svc := env.paymentService()
	ctx := context.Background()

	_, err := svc.CreateIntent(ctx, owner, b.ID)
	assert.ErrorIs(t, err, ErrForbidden, "only the guest pays")

	res, err := svc.CreateIntent(ctx, guest, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 160.0, res.Amount)
	assert.Equal(t, "EUR", res.Currency)
	assert.NotEmpty(t, res.ClientSecret)

	stored, err := env.bookings.FindByID(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PaymentIntentID)
	assert.Equal(t, res.PaymentIntentID, *stored.PaymentIntentID)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)

	_, err = svc.CreateIntent(ctx, guest, 9999)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCreateIntent_ProviderError(t *testing.T) {
	env := newTestEnv(t)
	guest, _, b := pendingBooking(t, env)
	env.gateway.intentErr = errors.New("api down")

	_, err := env.paymentService().CreateIntent(context.Background(), guest, b.ID)
	assert.ErrorIs(t, err, ErrPaymentFailed)

	stored, err := env.bookings.FindByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentUnpaid, stored.PaymentStatus)
}

func TestCreateIntent_NotPayable(t *testing.T) {
	env := newTestEnv(t)
	guest, _, b := pendingBooking(t, env)
	ctx := context.Background()
	_, err := env.bookingService().CancelBooking(ctx, guest, b.ID)
	require.NoError(t, err)

	_, err = env.paymentService().CreateIntent(ctx, guest, b.ID)
	assert.ErrorIs(t, err, ErrNotPayable)
}

func TestHandleWebhook_PaymentSucceeded(t *testing.T) {
	env := newTestEnv(t)
	guest, _, b := pendingBooking(t, env)
	svc := env.paymentService()
	ctx := context.Background()

	res, err := svc.CreateIntent(ctx, guest, b.ID)
	require.NoError(t, err)

	env.gateway.event = &payment.WebhookEvent{
		ID:              "evt_1",
		Type:            payment.EventPaymentSucceeded,
		PaymentIntentID: res.PaymentIntentID,
		AmountMinor:     16000,
	}
	require.NoError(t, svc.HandleWebhook(ctx, []byte("{}"), "valid"))

	stored, err := env.bookings.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, 160.0, stored.AmountPaid)
	require.NotNil(t, stored.PaidAt)

	// redelivery is a no-op
	require.NoError(t, svc.HandleWebhook(ctx, []byte("{}"), "valid"))
	assert.Contains(t, env.mail.subjects(), "Booking #1 confirmed")
	confirmations := 0
	for _, s := range env.mail.subjects() {
		if s == "Booking #1 confirmed" {
			confirmations++
		}
	}
	assert.Equal(t, 1, confirmations)
}

func TestHandleWebhook_PaymentAfterCancelIsRefunded(t *testing.T) {
	env := newTestEnv(t)
	guest, _, b := pendingBooking(t, env)
	svc := env.paymentService()
	ctx := context.Background()

	res, err := svc.CreateIntent(ctx, guest, b.ID)
	require.NoError(t, err)

	// the provider already captured, so the intent can no longer be cancelled
	env.gateway.cancelErr = errors.New("payment_intent_unexpected_state")
	_, err = env.bookingService().CancelBooking(ctx, guest, b.ID)
	require.NoError(t, err)

	env.gateway.event = &payment.WebhookEvent{
		ID:              "evt_late",
		Type:            payment.EventPaymentSucceeded,
		PaymentIntentID: res.PaymentIntentID,
		AmountMinor:     16000,
		Currency:        "eur",
	}
	require.NoError(t, svc.HandleWebhook(ctx, []byte("{}"), "valid"))

	stored, err := env.bookings.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	assert.Equal(t, models.PaymentRefunded, stored.PaymentStatus)
	assert.Equal(t, "re_"+res.PaymentIntentID, stored.RefundID)
	assert.Equal(t, []string{res.PaymentIntentID}, env.gateway.refunds)
}

func TestPayment_ZeroDecimalCurrency(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, models.RoleLandlord)
	guest := env.user(t, models.RoleUser)
	p := env.property(t, owner, models.ListingShortTerm, 12000, 2)
	require.NoError(t, env.db.Model(p).Update("currency", "JPY").Error)
	ctx := context.Background()

	b, err := env.bookingService().CreateBooking(ctx, guest, p.ID, bookingInput("2030-03-01", "2030-03-03", 1))
	require.NoError(t, err)
	assert.Equal(t, "JPY", b.Currency)

	svc := env.paymentService()
	res, err := svc.CreateIntent(ctx, guest, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 24000.0, res.Amount)
	assert.Equal(t, []int64{24000}, env.gateway.amounts, "yen are charged in whole units")

	env.gateway.event = &payment.WebhookEvent{
		ID:              "evt_jpy",
		Type:            payment.EventPaymentSucceeded,
		PaymentIntentID: res.PaymentIntentID,
		AmountMinor:     24000,
		Currency:        "jpy",
	}
	require.NoError(t, svc.HandleWebhook(ctx, []byte("{}"), "valid"))

	stored, err := env.bookings.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 24000.0, stored.AmountPaid)
}

func TestHandleWebhook_ResolvesByMetadata(t *testing.T) {
	env := newTestEnv(t)
	_, _, b := pendingBooking(t, env)
	svc := env.paymentService()
	ctx := context.Background()

	env.gateway.event = &payment.WebhookEvent{
		ID:              "evt_2",
		Type:            payment.EventPaymentSucceeded,
		PaymentIntentID: "pi_created_elsewhere",
		BookingID:       b.ID,
	}
	require.NoError(t, svc.HandleWebhook(ctx, []byte("{}"), "valid"))

	stored, err := env.bookings.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, b.TotalPrice, stored.AmountPaid)
	require.NotNil(t, stored.PaymentIntentID)
	assert.Equal(t, "pi_created_elsewhere", *stored.PaymentIntentID)
}

func TestHandleWebhook_PaymentFailed(t *testing.T) {
	env := newTestEnv(t)
	guest, _, b := pendingBooking(t, env)
	svc := env.paymentService()
	ctx := context.Background()

	res, err := svc.CreateIntent(ctx, guest, b.ID)
	require.NoError(t, err)

	env.gateway.event = &payment.WebhookEvent{ID: "evt_3", Type: payment.EventPaymentFailed, PaymentIntentID: res.PaymentIntentID}
	require.NoError(t, svc.HandleWebhook(ctx, []byte("{}"), "valid"))

	stored, err := env.bookings.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Equal(t, models.PaymentFailed, stored.PaymentStatus)

	// a retry with a new intent is allowed after a failure
	_, err = svc.CreateIntent(ctx, guest, b.ID)
	assert.NoError(t, err)
}

func TestHandleWebhook_ChargeRefunded(t *testing.T) {
	env := newTestEnv(t)
	guest, _, b := pendingBooking(t, env)
	svc := env.paymentService()
	ctx := context.Background()

	res, err := svc.CreateIntent(ctx, guest, b.ID)
	require.NoError(t, err)
	env.gateway.event = &payment.WebhookEvent{ID: "evt_4", Type: payment.EventPaymentSucceeded, PaymentIntentID: res.PaymentIntentID}
	require.NoError(t, svc.HandleWebhook(ctx, []byte("{}"), "valid"))

	env.gateway.event = &payment.WebhookEvent{ID: "evt_5", Type: payment.EventChargeRefunded, PaymentIntentID: res.PaymentIntentID, RefundID: "re_dash"}
	require.NoError(t, svc.HandleWebhook(ctx, []byte("{}"), "valid"))

	stored, err := env.bookings.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	assert.Equal(t, models.PaymentRefunded, stored.PaymentStatus)
	assert.Equal(t, "re_dash", stored.RefundID)
	assert.NotNil(t, stored.CancelledAt)
}

func TestHandleWebhook_IgnoredEvents(t *testing.T) {
	env := newTestEnv(t)
	svc := env.paymentService()
	ctx := context.Background()

	env.gateway.event = &payment.WebhookEvent{ID: "evt_6", Type: "customer.created"}
	assert.NoError(t, svc.HandleWebhook(ctx, []byte("{}"), "valid"))

	env.gateway.event = &payment.WebhookEvent{ID: "evt_7", Type: payment.EventPaymentSucceeded, PaymentIntentID: "pi_unknown"}
	assert.NoError(t, svc.HandleWebhook(ctx, []byte("{}"), "valid"), "unknown bookings are acknowledged")
}

func TestHandleWebhook_BadSignature(t *testing.T) {
	env := newTestEnv(t)
	err := env.paymentService().HandleWebhook(context.Background(), []byte("{}"), "forged")
	assert.ErrorIs(t, err, ErrInvalidWebhook)
}

func TestRefund(t *testing.T) {
	env := newTestEnv(t)
	guest, owner, b := pendingBooking(t, env)
	svc := env.paymentService()
	ctx := context.Background()

	_, err := svc.Refund(ctx, owner, b.ID)
	assert.ErrorIs(t, err, ErrNotRefundable)

	res, err := svc.CreateIntent(ctx, guest, b.ID)
	require.NoError(t, err)
	env.gateway.event = &payment.WebhookEvent{ID: "evt_8", Type: payment.EventPaymentSucceeded, PaymentIntentID: res.PaymentIntentID}
	require.NoError(t, svc.HandleWebhook(ctx, []byte("{}"), "valid"))

	_, err = svc.Refund(ctx, guest, b.ID)
	assert.ErrorIs(t, err, ErrForbidden, "guests cancel instead of refunding")

	refunded, err := svc.Refund(ctx, owner, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, refunded.PaymentStatus)
	assert.Equal(t, models.StatusCancelled, refunded.Status)
	assert.Equal(t, []string{res.PaymentIntentID}, env.gateway.refunds)

	got, err := svc.GetPayment(ctx, guest, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "re_"+res.PaymentIntentID, got.RefundID)
}
