package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/Eursukkul/rental-marketplace/internal/dto"
	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/internal/repository"
	"github.com/Eursukkul/rental-marketplace/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock PropertyService ---

type mockPropertyService struct {
	createFn       func(ctx context.Context, actor models.Actor, p *models.Property) error
	getFn          func(ctx context.Context, id uint) (*models.Property, error)
	listFn         func(ctx context.Context, filter repository.PropertyFilter) ([]models.Property, int64, error)
	updateFn       func(ctx context.Context, actor models.Actor, id uint, in service.PropertyUpdate) (*models.Property, error)
	deleteFn       func(ctx context.Context, actor models.Actor, id uint) error
	availabilityFn func(ctx context.Context, id uint, from, to time.Time) ([]service.BookedRange, error)
}

func (m *mockPropertyService) CreateProperty(ctx context.Context, actor models.Actor, p *models.Property) error {
	return m.createFn(ctx, actor, p)
}
func (m *mockPropertyService) GetProperty(ctx context.Context, id uint) (*models.Property, error) {
	return m.getFn(ctx, id)
}
func (m *mockPropertyService) ListProperties(ctx context.Context, filter repository.PropertyFilter) ([]models.Property, int64, error) {
	return m.listFn(ctx, filter)
}
func (m *mockPropertyService) UpdateProperty(ctx context.Context, actor models.Actor, id uint, in service.PropertyUpdate) (*models.Property, error) {
	return m.updateFn(ctx, actor, id, in)
}
func (m *mockPropertyService) DeleteProperty(ctx context.Context, actor models.Actor, id uint) error {
	return m.deleteFn(ctx, actor, id)
}
func (m *mockPropertyService) Availability(ctx context.Context, id uint, from, to time.Time) ([]service.BookedRange, error) {
	return m.availabilityFn(ctx, id, from, to)
}
func (m *mockPropertyService) AddImage(ctx context.Context, actor models.Actor, propertyID, uploadID uint) (*models.PropertyImage, error) {
	return &models.PropertyImage{ID: 1, PropertyID: propertyID, UploadID: uploadID}, nil
}
func (m *mockPropertyService) RemoveImage(ctx context.Context, actor models.Actor, propertyID, imageID uint) error {
	return nil
}

// --- Tests ---

func TestCreateProperty_Handler_Success(t *testing.T) {
	svc := &mockPropertyService{
		createFn: func(ctx context.Context, actor models.Actor, p *models.Property) error {
			assert.Equal(t, landlord, actor)
			assert.Equal(t, "USD", p.Currency)
			assert.True(t, p.IsAvailable)
			assert.Equal(t, []string{"wifi", "pool"}, []string(p.Amenities))
			p.ID = 9
			p.OwnerID = actor.UserID
			return nil
		},
	}

	body := `{"title":"Sea view flat","property_type":"APARTMENT","listing_type":"SHORT_TERM","address":"1 Beach Rd","city":"Lisbon","price":120,"max_guests":4,"amenities":["wifi","pool"]}`
	c, rec := newJSONContext(http.MethodPost, "/api/v1/properties", body, &landlord)

	err := NewPropertyHandler(svc, "usd").CreateProperty(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp dto.PropertyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint(9), resp.ID)
	assert.Equal(t, uint(20), resp.OwnerID)
	assert.Nil(t, resp.Latitude)
	assert.Empty(t, resp.Images)
}

func TestCreateProperty_Handler_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"property_type":"APARTMENT","listing_type":"SHORT_TERM","address":"a","city":"b","price":1,"max_guests":1}`},
		{"bad type", `{"title":"t","property_type":"CASTLE","listing_type":"SHORT_TERM","address":"a","city":"b","price":1,"max_guests":1}`},
		{"zero price", `{"title":"t","property_type":"HOUSE","listing_type":"LONG_TERM","address":"a","city":"b","price":0,"max_guests":1}`},
		{"lat without lng", `{"title":"t","property_type":"HOUSE","listing_type":"LONG_TERM","address":"a","city":"b","price":5,"max_guests":1,"latitude":10}`},
		{"lng without lat", `{"title":"t","property_type":"HOUSE","listing_type":"LONG_TERM","address":"a","city":"b","price":5,"max_guests":1,"longitude":10}`},
		{"lat out of range", `{"title":"t","property_type":"HOUSE","listing_type":"LONG_TERM","address":"a","city":"b","price":5,"max_guests":1,"latitude":91,"longitude":10}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newJSONContext(http.MethodPost, "/api/v1/properties", tt.body, &landlord)
			err := NewPropertyHandler(&mockPropertyService{}, "USD").CreateProperty(c)
			assertHTTPError(t, err, http.StatusBadRequest)
		})
	}
}

func TestListProperties_Handler_ParsesFilters(t *testing.T) {
	svc := &mockPropertyService{
		listFn: func(ctx context.Context, filter repository.PropertyFilter) ([]models.Property, int64, error) {
			assert.Equal(t, "Lisbon", filter.City)
			assert.Equal(t, models.PropertyApartment, filter.PropertyType)
			require.NotNil(t, filter.MinPrice)
			assert.Equal(t, 50.0, *filter.MinPrice)
			assert.Equal(t, 2, filter.Guests)
			require.NotNil(t, filter.Available)
			assert.True(t, *filter.Available)
			assert.Equal(t, 10, filter.Offset)
			assert.Equal(t, 10, filter.Limit)
			return []models.Property{{ID: 1, Title: "A"}}, 11, nil
		},
	}

	c, rec := newJSONContext(http.MethodGet, "/api/v1/properties?city=Lisbon&property_type=apartment&min_price=50&guests=2&available=true&page=2&limit=10", "", nil)
	assert.NoError(t, NewPropertyHandler(svc, "USD").ListProperties(c))

	var resp dto.ListResponse[dto.PropertyResponse]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(11), resp.Total)
	assert.Equal(t, 2, resp.Page)
	assert.Len(t, resp.Data, 1)
}

func TestListProperties_Handler_BadNumber(t *testing.T) {
	c, _ := newJSONContext(http.MethodGet, "/api/v1/properties?max_price=cheap", "", nil)
	err := NewPropertyHandler(&mockPropertyService{}, "USD").ListProperties(c)
	he := assertHTTPError(t, err, http.StatusBadRequest)
	assert.Equal(t, "max_price must be a number", he.Message)
}

func TestGetAvailability_Handler(t *testing.T) {
	svc := &mockPropertyService{
		availabilityFn: func(ctx context.Context, id uint, from, to time.Time) ([]service.BookedRange, error) {
			assert.Equal(t, day("2030-01-01"), from)
			assert.Equal(t, day("2030-02-01"), to)
			return []service.BookedRange{{BookingID: 4, StartDate: day("2030-01-10"), EndDate: day("2030-01-12"), Status: models.StatusConfirmed}}, nil
		},
	}
	c, rec := newJSONContext(http.MethodGet, "/api/v1/properties/3/availability?from=2030-01-01&to=2030-02-01", "", nil)
	withParams(c, "id", "3")

	assert.NoError(t, NewPropertyHandler(svc, "USD").GetAvailability(c))
	assert.Contains(t, rec.Body.String(), `"booking_id":4`)
}

func TestUpdateProperty_Handler_Forbidden(t *testing.T) {
	svc := &mockPropertyService{
		updateFn: func(ctx context.Context, actor models.Actor, id uint, in service.PropertyUpdate) (*models.Property, error) {
			require.NotNil(t, in.Price)
			assert.Nil(t, in.Title)
			return nil, service.ErrForbidden
		},
	}
	c, _ := newJSONContext(http.MethodPatch, "/api/v1/properties/3", `{"price":99}`, &guest)
	withParams(c, "id", "3")

	assertHTTPError(t, NewPropertyHandler(svc, "USD").UpdateProperty(c), http.StatusForbidden)
}
