package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Eursukkul/rental-marketplace/pkg/logger"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
	"github.com/stripe/stripe-go/v82/webhook"
)

const metadataBookingID = "booking_id"

type StripeGateway struct {
	webhookSecret string
}

// NewStripeGateway sets the process-wide Stripe key.
func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{webhookSecret: webhookSecret}
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, bookingID uint, amount float64, currency string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(ToMinor(amount, currency)),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Description: stripe.String(fmt.Sprintf("Booking #%d", bookingID)),
	}
	params.Context = ctx
	params.AddMetadata(metadataBookingID, strconv.FormatUint(uint64(bookingID), 10))

	pi, err := paymentintent.New(params)
	if err != nil {
		logger.Log.WithError(err).WithField("booking_id", bookingID).Error("Stripe payment intent creation failed")
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

func (g *StripeGateway) Refund(ctx context.Context, paymentIntentID string) (*Refund, error) {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(paymentIntentID)}
	params.Context = ctx

	r, err := refund.New(params)
	if err != nil {
		logger.Log.WithError(err).WithField("payment_intent_id", paymentIntentID).Error("Stripe refund failed")
		return nil, fmt.Errorf("create refund: %w", err)
	}
	return &Refund{ID: r.ID, Status: string(r.Status)}, nil
}

// CancelPaymentIntent stops an intent that has not been captured yet.
func (g *StripeGateway) CancelPaymentIntent(ctx context.Context, paymentIntentID string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String("requested_by_customer"),
	}
	params.Context = ctx

	if _, err := paymentintent.Cancel(paymentIntentID, params); err != nil {
		logger.Log.WithError(err).WithField("payment_intent_id", paymentIntentID).Warn("Stripe payment intent cancel failed")
		return fmt.Errorf("cancel payment intent: %w", err)
	}
	return nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the fields
// booking state depends on. Unhandled event types come back with only ID and Type.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &WebhookEvent{ID: event.ID, Type: EventType(event.Type)}

	switch out.Type {
	case EventPaymentSucceeded, EventPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("parse payment intent: %w", err)
		}
		out.PaymentIntentID = pi.ID
		out.AmountMinor = pi.AmountReceived
		out.Currency = string(pi.Currency)
		out.BookingID = bookingIDFromMetadata(pi.Metadata)
	case EventChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("parse charge: %w", err)
		}
		if ch.PaymentIntent != nil {
			out.PaymentIntentID = ch.PaymentIntent.ID
		}
		out.AmountMinor = ch.AmountRefunded
		out.Currency = string(ch.Currency)
		out.BookingID = bookingIDFromMetadata(ch.Metadata)
		if ch.Refunds != nil && len(ch.Refunds.Data) > 0 {
			out.RefundID = ch.Refunds.Data[0].ID
		}
	}
	return out, nil
}

func bookingIDFromMetadata(md map[string]string) uint {
	id, err := strconv.ParseUint(md[metadataBookingID], 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}
