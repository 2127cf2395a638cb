package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/Eursukkul/rental-marketplace/internal/dto"
	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock BookingService ---

type mockBookingService struct {
	createFn       func(ctx context.Context, actor models.Actor, propertyID uint, in service.BookingInput) (*models.Booking, error)
	getFn          func(ctx context.Context, actor models.Actor, id uint) (*models.Booking, error)
	listMineFn     func(ctx context.Context, actor models.Actor, status *models.BookingStatus) ([]models.Booking, error)
	listPropertyFn func(ctx context.Context, actor models.Actor, propertyID uint, status *models.BookingStatus) ([]models.Booking, error)
	updateFn       func(ctx context.Context, actor models.Actor, id uint, status models.BookingStatus) (*models.Booking, error)
	cancelFn       func(ctx context.Context, actor models.Actor, id uint) (*models.Booking, error)
}

func (m *mockBookingService) CreateBooking(ctx context.Context, actor models.Actor, propertyID uint, in service.BookingInput) (*models.Booking, error) {
	return m.createFn(ctx, actor, propertyID, in)
}
func (m *mockBookingService) GetBooking(ctx context.Context, actor models.Actor, id uint) (*models.Booking, error) {
	return m.getFn(ctx, actor, id)
}
func (m *mockBookingService) ListMyBookings(ctx context.Context, actor models.Actor, status *models.BookingStatus) ([]models.Booking, error) {
	return m.listMineFn(ctx, actor, status)
}
func (m *mockBookingService) ListPropertyBookings(ctx context.Context, actor models.Actor, propertyID uint, status *models.BookingStatus) ([]models.Booking, error) {
	return m.listPropertyFn(ctx, actor, propertyID, status)
}
func (m *mockBookingService) UpdateStatus(ctx context.Context, actor models.Actor, id uint, status models.BookingStatus) (*models.Booking, error) {
	return m.updateFn(ctx, actor, id, status)
}
func (m *mockBookingService) CancelBooking(ctx context.Context, actor models.Actor, id uint) (*models.Booking, error) {
	return m.cancelFn(ctx, actor, id)
}
func (m *mockBookingService) CompleteEndedBookings(ctx context.Context) (int, error) { return 0, nil }
func (m *mockBookingService) ExpireStalePending(ctx context.Context, ttl time.Duration) (int, error) {
	return 0, nil
}

func day(s string) time.Time {
	t, _ := time.Parse(dateLayout, s)
	return t
}

// --- Tests ---

func TestCreateBooking_Handler_Success(t *testing.T) {
	svc := &mockBookingService{
		createFn: func(ctx context.Context, actor models.Actor, propertyID uint, in service.BookingInput) (*models.Booking, error) {
			assert.Equal(t, guest, actor)
			assert.Equal(t, uint(5), propertyID)
			assert.Equal(t, day("2030-03-01"), in.StartDate)
			assert.Equal(t, day("2030-03-04"), in.EndDate)
			return &models.Booking{
				ID:            1,
				PropertyID:    propertyID,
				GuestID:       actor.UserID,
				StartDate:     in.StartDate,
				EndDate:       in.EndDate,
				Guests:        in.Guests,
				TotalPrice:    300,
				Currency:      "USD",
				Status:        models.StatusPending,
				PaymentStatus: models.PaymentUnpaid,
			}, nil
		},
	}

	body := `{"start_date":"2030-03-01","end_date":"2030-03-04","guests":2}`
	c, rec := newJSONContext(http.MethodPost, "/api/v1/properties/5/bookings", body, &guest)
	withParams(c, "id", "5")

	err := NewBookingHandler(svc).CreateBooking(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp dto.BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint(1), resp.ID)
	assert.Equal(t, "2030-03-01", resp.StartDate)
	assert.Equal(t, 3, resp.Nights)
	assert.Equal(t, models.StatusPending, resp.Status)
	assert.Equal(t, models.PaymentUnpaid, resp.PaymentStatus)
}

func TestCreateBooking_Handler_BadDateFormat(t *testing.T) {
	body := `{"start_date":"03/01/2030","end_date":"2030-03-04","guests":2}`
	c, _ := newJSONContext(http.MethodPost, "/api/v1/properties/5/bookings", body, &guest)
	withParams(c, "id", "5")

	err := NewBookingHandler(&mockBookingService{}).CreateBooking(c)
	assertHTTPError(t, err, http.StatusBadRequest)
}

func TestCreateBooking_Handler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"overlap", service.ErrBookingOverlap, http.StatusBadRequest},
		{"past", service.ErrDateInPast, http.StatusBadRequest},
		{"own property", service.ErrOwnProperty, http.StatusBadRequest},
		{"too many guests", service.ErrTooManyGuests, http.StatusBadRequest},
		{"not found", service.ErrPropertyNotFound, http.StatusNotFound},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBookingService{
				createFn: func(ctx context.Context, actor models.Actor, propertyID uint, in service.BookingInput) (*models.Booking, error) {
					return nil, tt.err
				},
			}
			body := `{"start_date":"2030-03-01","end_date":"2030-03-04","guests":2}`
			c, _ := newJSONContext(http.MethodPost, "/api/v1/properties/5/bookings", body, &guest)
			withParams(c, "id", "5")

			err := NewBookingHandler(svc).CreateBooking(c)
			he := assertHTTPError(t, err, tt.code)
			if tt.code == http.StatusInternalServerError {
				assert.NotContains(t, fmt.Sprint(he.Message), "connection reset")
			}
		})
	}
}

func TestCreateBooking_Handler_RequiresActor(t *testing.T) {
	body := `{"start_date":"2030-03-01","end_date":"2030-03-04","guests":2}`
	c, _ := newJSONContext(http.MethodPost, "/api/v1/properties/5/bookings", body, nil)
	withParams(c, "id", "5")

	err := NewBookingHandler(&mockBookingService{}).CreateBooking(c)
	assertHTTPError(t, err, http.StatusUnauthorized)
}

func TestUpdateStatus_Handler(t *testing.T) {
	svc := &mockBookingService{
		updateFn: func(ctx context.Context, actor models.Actor, id uint, status models.BookingStatus) (*models.Booking, error) {
			if actor.UserID != landlord.UserID {
				return nil, service.ErrForbidden
			}
			if status == models.StatusPending {
				return nil, fmt.Errorf("%w: CONFIRMED to PENDING", service.ErrInvalidTransition)
			}
			return &models.Booking{ID: id, Status: status}, nil
		},
	}
	h := NewBookingHandler(svc)

	c, rec := newJSONContext(http.MethodPatch, "/api/v1/bookings/3/status", `{"status":"CONFIRMED"}`, &landlord)
	withParams(c, "id", "3")
	assert.NoError(t, h.UpdateStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, _ = newJSONContext(http.MethodPatch, "/api/v1/bookings/3/status", `{"status":"CONFIRMED"}`, &guest)
	withParams(c, "id", "3")
	assertHTTPError(t, h.UpdateStatus(c), http.StatusForbidden)

	c, _ = newJSONContext(http.MethodPatch, "/api/v1/bookings/3/status", `{"status":"PENDING"}`, &landlord)
	withParams(c, "id", "3")
	assertHTTPError(t, h.UpdateStatus(c), http.StatusBadRequest)

	c, _ = newJSONContext(http.MethodPatch, "/api/v1/bookings/3/status", `{"status":"ARCHIVED"}`, &landlord)
	withParams(c, "id", "3")
	assertHTTPError(t, h.UpdateStatus(c), http.StatusBadRequest)
}

func TestCancelBooking_Handler(t *testing.T) {
	svc := &mockBookingService{
		cancelFn: func(ctx context.Context, actor models.Actor, id uint) (*models.Booking, error) {
			if id == 404 {
				return nil, service.ErrBookingNotFound
			}
			return &models.Booking{ID: id, Status: models.StatusCancelled}, nil
		},
	}
	h := NewBookingHandler(svc)

	c, rec := newJSONContext(http.MethodDelete, "/api/v1/bookings/1", "", &guest)
	withParams(c, "id", "1")
	assert.NoError(t, h.CancelBooking(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"CANCELLED"`)

	c, _ = newJSONContext(http.MethodDelete, "/api/v1/bookings/404", "", &guest)
	withParams(c, "id", "404")
	assertHTTPError(t, h.CancelBooking(c), http.StatusNotFound)

	c, _ = newJSONContext(http.MethodDelete, "/api/v1/bookings/abc", "", &guest)
	withParams(c, "id", "abc")
	assertHTTPError(t, h.CancelBooking(c), http.StatusBadRequest)
}

func TestListPropertyBookings_Handler_StatusFilter(t *testing.T) {
	svc := &mockBookingService{
		listPropertyFn: func(ctx context.Context, actor models.Actor, propertyID uint, status *models.BookingStatus) ([]models.Booking, error) {
			require.NotNil(t, status)
			assert.Equal(t, models.StatusConfirmed, *status)
			return []models.Booking{
				{ID: 1, PropertyID: propertyID, Status: models.StatusConfirmed},
				{ID: 2, PropertyID: propertyID, Status: models.StatusConfirmed},
			}, nil
		},
	}
	h := NewBookingHandler(svc)

	c, rec := newJSONContext(http.MethodGet, "/api/v1/properties/5/bookings?status=CONFIRMED", "", &landlord)
	withParams(c, "id", "5")
	assert.NoError(t, h.ListPropertyBookings(c))

	var resp []dto.BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)

	c, _ = newJSONContext(http.MethodGet, "/api/v1/properties/5/bookings?status=LOST", "", &landlord)
	withParams(c, "id", "5")
	assertHTTPError(t, h.ListPropertyBookings(c), http.StatusBadRequest)
}
