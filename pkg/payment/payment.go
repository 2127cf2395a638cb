package payment

import (
	"context"
	"errors"
	"math"
	"strings"
)

var (
	ErrPaymentsDisabled = errors.New("payments are not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

type EventType string

const (
	EventPaymentSucceeded EventType = "payment_intent.succeeded"
	EventPaymentFailed    EventType = "payment_intent.payment_failed"
	EventChargeRefunded   EventType = "charge.refunded"
)

type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
}

type Refund struct {
	ID     string
	Status string
}

// WebhookEvent is the provider-neutral part of a verified webhook.
type WebhookEvent struct {
	ID              string
	Type            EventType
	PaymentIntentID string
	BookingID       uint
	AmountMinor     int64
	Currency        string
	RefundID        string
}

type Gateway interface {
	CreatePaymentIntent(ctx context.Context, bookingID uint, amount float64, currency string) (*Intent, error)
	Refund(ctx context.Context, paymentIntentID string) (*Refund, error)
	CancelPaymentIntent(ctx context.Context, paymentIntentID string) error
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// minorExponents lists currencies whose minor unit is not 1/100, as Stripe
// counts them.
var minorExponents = map[string]int{
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "JPY": 0, "KMF": 0, "KRW": 0, "MGA": 0,
	"PYG": 0, "RWF": 0, "UGX": 0, "VND": 0, "VUV": 0, "XAF": 0, "XOF": 0, "XPF": 0,
	"BHD": 3, "JOD": 3, "KWD": 3, "OMR": 3, "TND": 3,
}

func minorFactor(currency string) float64 {
	exp, ok := minorExponents[strings.ToUpper(currency)]
	if !ok {
		exp = 2
	}
	return math.Pow10(exp)
}

// ToMinor converts a decimal amount to the currency's minor unit.
func ToMinor(amount float64, currency string) int64 {
	return int64(math.Round(amount * minorFactor(currency)))
}

func FromMinor(minor int64, currency string) float64 {
	return float64(minor) / minorFactor(currency)
}

// Disabled rejects every call; used when no provider key is set.
type Disabled struct{}

func (Disabled) CreatePaymentIntent(context.Context, uint, float64, string) (*Intent, error) {
	return nil, ErrPaymentsDisabled
}

func (Disabled) Refund(context.Context, string) (*Refund, error) {
	return nil, ErrPaymentsDisabled
}

func (Disabled) CancelPaymentIntent(context.Context, string) error {
	return ErrPaymentsDisabled
}

func (Disabled) ParseWebhook([]byte, string) (*WebhookEvent, error) {
	return nil, ErrPaymentsDisabled
}
