package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Eursukkul/rental-marketplace/internal/events"
	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/internal/repository"
	"github.com/Eursukkul/rental-marketplace/pkg/geocoding"
	"github.com/Eursukkul/rental-marketplace/pkg/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PropertyUpdate is a partial update; nil fields are left untouched.
type PropertyUpdate struct {
	Title         *string
	Description   *string
	PropertyType  *models.PropertyType
	ListingType   *models.ListingType
	Address       *string
	City          *string
	State         *string
	Country       *string
	PostalCode    *string
	Latitude      *float64
	Longitude     *float64
	Price         *float64
	Currency      *string
	Bedrooms      *int
	Bathrooms     *int
	MaxGuests     *int
	Amenities     *[]string
	IsAvailable   *bool
	AvailableFrom *time.Time
}

type BookedRange struct {
	BookingID uint                 `json:"booking_id"`
	StartDate time.Time            `json:"start_date"`
	EndDate   time.Time            `json:"end_date"`
	Status    models.BookingStatus `json:"status"`
}

type PropertyService interface {
	CreateProperty(ctx context.Context, actor models.Actor, p *models.Property) error
	GetProperty(ctx context.Context, id uint) (*models.Property, error)
	ListProperties(ctx context.Context, filter repository.PropertyFilter) ([]models.Property, int64, error)
	UpdateProperty(ctx context.Context, actor models.Actor, id uint, in PropertyUpdate) (*models.Property, error)
	DeleteProperty(ctx context.Context, actor models.Actor, id uint) error
	Availability(ctx context.Context, id uint, from, to time.Time) ([]BookedRange, error)
	AddImage(ctx context.Context, actor models.Actor, propertyID, uploadID uint) (*models.PropertyImage, error)
	RemoveImage(ctx context.Context, actor models.Actor, propertyID, imageID uint) error
}

type propertyService struct {
	repo        repository.PropertyRepository
	bookingRepo repository.BookingRepository
	uploads     UploadService
	geocoder    geocoding.Geocoder
	publisher   Publisher
	search      SearchService
}

// NewPropertyService publishes index events when publisher is non-nil and
// otherwise updates the search index inline.
func NewPropertyService(
	repo repository.PropertyRepository,
	bookingRepo repository.BookingRepository,
	uploads UploadService,
	geocoder geocoding.Geocoder,
	publisher Publisher,
	search SearchService,
) PropertyService {
	return &propertyService{
		repo:        repo,
		bookingRepo: bookingRepo,
		uploads:     uploads,
		geocoder:    geocoder,
		publisher:   publisher,
		search:      search,
	}
}

func (s *propertyService) CreateProperty(ctx context.Context, actor models.Actor, p *models.Property) error {
	if !actor.Role.CanList() {
		return ErrForbidden
	}
	p.OwnerID = actor.UserID
	p.Currency = strings.ToUpper(p.Currency)
	if !p.HasCoordinates() {
		s.geocode(ctx, p)
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("create property: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"property_id": p.ID,
		"owner_id":    p.OwnerID,
	}).Info("Property created")
	s.notifyUpserted(ctx, p.ID)
	return nil
}

// geocode fills coordinates from the address. Failures leave them unset.
func (s *propertyService) geocode(ctx context.Context, p *models.Property) {
	if s.geocoder == nil {
		return
	}
	address := p.FullAddress()
	lat, lng, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		if !errors.Is(err, geocoding.ErrGeocodingDisabled) {
			logger.Log.WithError(err).WithField("address", address).Warn("Geocoding failed, coordinates left unset")
		}
		p.Latitude, p.Longitude = nil, nil
		return
	}
	p.Latitude, p.Longitude = &lat, &lng
}

func (s *propertyService) GetProperty(ctx context.Context, id uint) (*models.Property, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *propertyService) ListProperties(ctx context.Context, filter repository.PropertyFilter) ([]models.Property, int64, error) {
	return s.repo.List(ctx, filter)
}

func (s *propertyService) owned(ctx context.Context, actor models.Actor, id uint) (*models.Property, error) {
	p, err := s.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *propertyService) UpdateProperty(ctx context.Context, actor models.Actor, id uint, in PropertyUpdate) (*models.Property, error) {
	p, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	oldAddress := p.FullAddress()
	setIf(&p.Title, in.Title)
	setIf(&p.Description, in.Description)
	setIf(&p.PropertyType, in.PropertyType)
	setIf(&p.ListingType, in.ListingType)
	setIf(&p.Address, in.Address)
	setIf(&p.City, in.City)
	setIf(&p.State, in.State)
	setIf(&p.Country, in.Country)
	setIf(&p.PostalCode, in.PostalCode)
	setIf(&p.Price, in.Price)
	setIf(&p.Bedrooms, in.Bedrooms)
	setIf(&p.Bathrooms, in.Bathrooms)
	setIf(&p.MaxGuests, in.MaxGuests)
	setIf(&p.IsAvailable, in.IsAvailable)
	if in.Currency != nil {
		p.Currency = strings.ToUpper(*in.Currency)
	}
	if in.Amenities != nil {
		p.Amenities = *in.Amenities
	}
	if in.AvailableFrom != nil {
		p.AvailableFrom = in.AvailableFrom
	}

	switch {
	case in.Latitude != nil && in.Longitude != nil:
		p.Latitude, p.Longitude = in.Latitude, in.Longitude
	case p.FullAddress() != oldAddress:
		s.geocode(ctx, p)
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update property: %w", err)
	}
	s.notifyUpserted(ctx, p.ID)
	return p, nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (s *propertyService) DeleteProperty(ctx context.Context, actor models.Actor, id uint) error {
	p, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPropertyNotFound
		}
		return fmt.Errorf("delete property: %w", err)
	}
	for _, img := range p.Images {
		if err := s.uploads.Purge(ctx, img.UploadID); err != nil && !errors.Is(err, ErrUploadNotFound) {
			logger.Log.WithError(err).WithField("upload_id", img.UploadID).Warn("Failed to purge image upload")
		}
	}
	logger.Log.WithField("property_id", id).Info("Property deleted")
	s.notifyDeleted(ctx, id)
	return nil
}

func (s *propertyService) Availability(ctx context.Context, id uint, from, to time.Time) ([]BookedRange, error) {
	if _, err := s.GetProperty(ctx, id); err != nil {
		return nil, err
	}
	if !from.Before(to) {
		return nil, ErrInvalidDates
	}
	bookings, err := s.bookingRepo.FindOverlapping(ctx, nil, id, from, to)
	if err != nil {
		return nil, err
	}
	ranges := make([]BookedRange, len(bookings))
	for i, b := range bookings {
		ranges[i] = BookedRange{BookingID: b.ID, StartDate: b.StartDate, EndDate: b.EndDate, Status: b.Status}
	}
	return ranges, nil
}

func (s *propertyService) AddImage(ctx context.Context, actor models.Actor, propertyID, uploadID uint) (*models.PropertyImage, error) {
	if _, err := s.owned(ctx, actor, propertyID); err != nil {
		return nil, err
	}
	upload, err := s.uploads.Get(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if upload.OwnerID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if !strings.HasPrefix(upload.ContentType, "image/") {
		return nil, ErrUnsupportedFileType
	}

	image := &models.PropertyImage{
		PropertyID: propertyID,
		UploadID:   upload.ID,
		URL:        s.uploads.URL(upload),
	}
	if err := s.repo.AddImage(ctx, image); err != nil {
		return nil, fmt.Errorf("add image: %w", err)
	}
	s.notifyUpserted(ctx, propertyID)
	return image, nil
}

func (s *propertyService) RemoveImage(ctx context.Context, actor models.Actor, propertyID, imageID uint) error {
	if _, err := s.owned(ctx, actor, propertyID); err != nil {
		return err
	}
	image, err := s.repo.FindImage(ctx, propertyID, imageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrImageNotFound
		}
		return err
	}
	if err := s.repo.DeleteImage(ctx, image.ID); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if err := s.uploads.Purge(ctx, image.UploadID); err != nil && !errors.Is(err, ErrUploadNotFound) {
		logger.Log.WithError(err).WithField("upload_id", image.UploadID).Warn("Failed to purge image upload")
	}
	s.notifyUpserted(ctx, propertyID)
	return nil
}

// Index failures are logged only; the index is eventually rebuilt by reindex.
func (s *propertyService) notifyUpserted(ctx context.Context, id uint) {
	if s.publisher != nil {
		if err := s.publisher.Publish(events.PropertyUpserted, events.PropertyEvent{PropertyID: id, OccurredAt: time.Now().UTC()}); err != nil {
			logger.Log.WithError(err).WithField("property_id", id).Warn("Failed to publish property event")
		}
		return
	}
	if s.search != nil {
		if err := s.search.IndexProperty(ctx, id); err != nil {
			logger.Log.WithError(err).WithField("property_id", id).Warn("Failed to index property")
		}
	}
}

func (s *propertyService) notifyDeleted(ctx context.Context, id uint) {
	if s.publisher != nil {
		if err := s.publisher.Publish(events.PropertyDeleted, events.PropertyEvent{PropertyID: id, OccurredAt: time.Now().UTC()}); err != nil {
			logger.Log.WithError(err).WithField("property_id", id).Warn("Failed to publish property event")
		}
		return
	}
	if s.search != nil {
		if err := s.search.RemoveProperty(ctx, id); err != nil {
			logger.Log.WithError(err).WithField("property_id", id).Warn("Failed to remove property from index")
		}
	}
}
