package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/internal/repository"
	"github.com/Eursukkul/rental-marketplace/pkg/auth"
	"github.com/Eursukkul/rental-marketplace/pkg/database"
	"github.com/Eursukkul/rental-marketplace/pkg/mailer"
	"github.com/Eursukkul/rental-marketplace/pkg/payment"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	auth.PasswordCost = bcrypt.MinCost
}

// fixedNow is the clock used by booking tests; fixtures are dated after it.
var fixedNow = time.Date(2030, 1, 1, 9, 30, 0, 0, time.UTC)

func date(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

type testEnv struct {
	db            *gorm.DB
	users         repository.UserRepository
	properties    repository.PropertyRepository
	bookings      repository.BookingRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	uploads       repository.UploadRepository
	gateway       *fakeGateway
	mail          *captureMailer
	notifier      *Notifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewSQLiteDB("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	env := &testEnv{
		db:            db,
		users:         repository.NewUserRepository(db),
		properties:    repository.NewPropertyRepository(db),
		bookings:      repository.NewBookingRepository(db),
		conversations: repository.NewConversationRepository(db),
		messages:      repository.NewMessageRepository(db),
		uploads:       repository.NewUploadRepository(db),
		gateway:       &fakeGateway{},
		mail:          &captureMailer{},
	}
	env.notifier = NewNotifier(env.mail, env.users)
	return env
}

func (e *testEnv) bookingService() *bookingService {
	svc := NewBookingService(e.bookings, e.properties, e.conversations, e.gateway, e.notifier).(*bookingService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func (e *testEnv) paymentService() *paymentService {
	svc := NewPaymentService(e.bookings, e.gateway, e.notifier).(*paymentService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func (e *testEnv) user(t *testing.T, role models.Role) models.Actor {
	t.Helper()
	u := &models.User{
		Email:        fmt.Sprintf("%s-%d@example.com", role, time.Now().UnixNano()),
		PasswordHash: "x",
		FirstName:    string(role),
		Role:         role,
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return models.Actor{UserID: u.ID, Role: u.Role}
}

func (e *testEnv) property(t *testing.T, owner models.Actor, listing models.ListingType, price float64, maxGuests int) *models.Property {
	t.Helper()
	p := &models.Property{
		OwnerID:      owner.UserID,
		Title:        "Canal house",
		PropertyType: models.PropertyHouse,
		ListingType:  listing,
		Address:      "Prinsengracht 1",
		City:         "Amsterdam",
		Price:        price,
		Currency:     "EUR",
		MaxGuests:    maxGuests,
		IsAvailable:  true,
	}
	require.NoError(t, e.properties.Create(context.Background(), p))
	return p
}

// --- Fakes ---

type fakeGateway struct {
	mu        sync.Mutex
	intents   int
	amounts   []int64
	refunds   []string
	cancelled []string
	event     *payment.WebhookEvent
	intentErr error
	refundErr error
	cancelErr error
}

func (g *fakeGateway) CreatePaymentIntent(ctx context.Context, bookingID uint, amount float64, currency string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.intentErr != nil {
		return nil, g.intentErr
	}
	g.intents++
	minor := payment.ToMinor(amount, currency)
	g.amounts = append(g.amounts, minor)
	id := fmt.Sprintf("pi_%d_%d", bookingID, g.intents)
	return &payment.Intent{ID: id, ClientSecret: id + "_secret", Amount: minor, Currency: currency}, nil
}

func (g *fakeGateway) Refund(ctx context.Context, paymentIntentID string) (*payment.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refunds = append(g.refunds, paymentIntentID)
	return &payment.Refund{ID: "re_" + paymentIntentID, Status: "succeeded"}, nil
}

func (g *fakeGateway) CancelPaymentIntent(ctx context.Context, paymentIntentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelErr != nil {
		return g.cancelErr
	}
	g.cancelled = append(g.cancelled, paymentIntentID)
	return nil
}

func (g *fakeGateway) ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	if signature != "valid" {
		return nil, payment.ErrInvalidSignature
	}
	return g.event, nil
}

type captureMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (m *captureMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, msg := range m.sent {
		out[i] = msg.Subject
	}
	return out
}

type broadcast struct {
	conversationID uint
	event          string
	data           any
}

type captureBroadcaster struct {
	mu     sync.Mutex
	events []broadcast
}

func (b *captureBroadcaster) Broadcast(conversationID uint, event string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcast{conversationID, event, data})
}

func (b *captureBroadcaster) named(event string) []broadcast {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []broadcast
	for _, e := range b.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}
