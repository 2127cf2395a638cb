package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/rental-marketplace/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error)
	FindByPaymentIntent(ctx context.Context, tx *gorm.DB, paymentIntentID string) (*models.Booking, error)
	FindOverlapping(ctx context.Context, tx *gorm.DB, propertyID uint, start, end time.Time) ([]models.Booking, error)
	ListByGuest(ctx context.Context, guestID uint, status *models.BookingStatus) ([]models.Booking, error)
	ListByProperty(ctx context.Context, propertyID uint, status *models.BookingStatus) ([]models.Booking, error)
	ListEndedBefore(ctx context.Context, status models.BookingStatus, before time.Time) ([]models.Booking, error)
	ListStalePending(ctx context.Context, createdBefore time.Time) ([]models.Booking, error)
	Update(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	GetDB() *gorm.DB
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *bookingRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return r.conn(tx).WithContext(ctx).Omit(clause.Associations).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Preload("Property").First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindByIDForUpdate locks the booking row and loads its property.
func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.conn(tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Property").
		First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByPaymentIntent(ctx context.Context, tx *gorm.DB, paymentIntentID string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.conn(tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Property").
		Where("payment_intent_id = ?", paymentIntentID).
		First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindOverlapping returns PENDING/CONFIRMED bookings of the property whose
// half-open range [start_date, end_date) intersects [start, end).
func (r *bookingRepository) FindOverlapping(ctx context.Context, tx *gorm.DB, propertyID uint, start, end time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.conn(tx).WithContext(ctx).
		Where("property_id = ? AND status IN ? AND start_date < ? AND end_date > ?",
			propertyID, models.ActiveStatuses, end, start).
		Order("start_date ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepository) ListByGuest(ctx context.Context, guestID uint, status *models.BookingStatus) ([]models.Booking, error) {
	var bookings []models.Booking
	q := r.db.WithContext(ctx).Preload("Property").Where("guest_id = ?", guestID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Order("start_date DESC, id DESC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) ListByProperty(ctx context.Context, propertyID uint, status *models.BookingStatus) ([]models.Booking, error) {
	var bookings []models.Booking
	q := r.db.WithContext(ctx).Preload("Guest").Where("property_id = ?", propertyID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Order("start_date ASC, id ASC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) ListEndedBefore(ctx context.Context, status models.BookingStatus, before time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_date <= ?", status, before).
		Order("id ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepository) ListStalePending(ctx context.Context, createdBefore time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_status IN ? AND created_at < ?",
			models.StatusPending, []models.PaymentStatus{models.PaymentUnpaid, models.PaymentFailed}, createdBefore).
		Order("id ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepository) Update(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return r.conn(tx).WithContext(ctx).Omit(clause.Associations).Save(booking).Error
}
