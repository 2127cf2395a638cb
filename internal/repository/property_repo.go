package repository

import (
	"context"
	"strings"

	"github.com/Eursukkul/rental-marketplace/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PropertyFilter struct {
	Query        string
	City         string
	PropertyType models.PropertyType
	ListingType  models.ListingType
	MinPrice     *float64
	MaxPrice     *float64
	Bedrooms     int
	Guests       int
	OwnerID      uint
	Available    *bool

	// Bounding box, all four set or none.
	MinLat, MaxLat, MinLng, MaxLng *float64

	Offset int
	Limit  int
}

type PropertyRepository interface {
	Create(ctx context.Context, property *models.Property) error
	FindByID(ctx context.Context, id uint) (*models.Property, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Property, error)
	List(ctx context.Context, filter PropertyFilter) ([]models.Property, int64, error)
	Update(ctx context.Context, property *models.Property) error
	Delete(ctx context.Context, id uint) error
	EachBatch(ctx context.Context, size int, fn func([]models.Property) error) error

	AddImage(ctx context.Context, image *models.PropertyImage) error
	FindImage(ctx context.Context, propertyID, imageID uint) (*models.PropertyImage, error)
	DeleteImage(ctx context.Context, imageID uint) error
}

type propertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

func (r *propertyRepository) Create(ctx context.Context, property *models.Property) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(property).Error
}

func (r *propertyRepository) FindByID(ctx context.Context, id uint) (*models.Property, error) {
	var property models.Property
	if err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&property, id).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

// FindByIDForUpdate acquires a row-level lock on the property within the given transaction.
func (r *propertyRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Property, error) {
	var property models.Property
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&property, id).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

func (r *propertyRepository) List(ctx context.Context, f PropertyFilter) ([]models.Property, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Property{})

	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(city) LIKE ? OR LOWER(address) LIKE ?", like, like, like, like)
	}
	if f.City != "" {
		q = q.Where("LOWER(city) = LOWER(?)", f.City)
	}
	if f.PropertyType != "" {
		q = q.Where("property_type = ?", f.PropertyType)
	}
	if f.ListingType != "" {
		q = q.Where("listing_type = ?", f.ListingType)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if f.Bedrooms > 0 {
		q = q.Where("bedrooms >= ?", f.Bedrooms)
	}
	if f.Guests > 0 {
		q = q.Where("max_guests >= ?", f.Guests)
	}
	if f.OwnerID != 0 {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.Available != nil {
		q = q.Where("is_available = ?", *f.Available)
	}
	if f.MinLat != nil && f.MaxLat != nil && f.MinLng != nil && f.MaxLng != nil {
		q = q.Where("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?", *f.MinLat, *f.MaxLat, *f.MinLng, *f.MaxLng)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var properties []models.Property
	q = q.Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC, id DESC").
		Offset(f.Offset)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Find(&properties).Error; err != nil {
		return nil, 0, err
	}
	return properties, total, nil
}

func (r *propertyRepository) Update(ctx context.Context, property *models.Property) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(property).Error
}

func (r *propertyRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Property{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// EachBatch walks every property in id order.
func (r *propertyRepository) EachBatch(ctx context.Context, size int, fn func([]models.Property) error) error {
	var batch []models.Property
	return r.db.WithContext(ctx).
		Preload("Images").
		Order("id ASC").
		FindInBatches(&batch, size, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
}

func (r *propertyRepository) AddImage(ctx context.Context, image *models.PropertyImage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos *int
		if err := tx.Model(&models.PropertyImage{}).
			Where("property_id = ?", image.PropertyID).
			Select("MAX(position)").
			Scan(&maxPos).Error; err != nil {
			return err
		}
		image.Position = 0
		if maxPos != nil {
			image.Position = *maxPos + 1
		}
		return tx.Omit(clause.Associations).Create(image).Error
	})
}

func (r *propertyRepository) FindImage(ctx context.Context, propertyID, imageID uint) (*models.PropertyImage, error) {
	var image models.PropertyImage
	if err := r.db.WithContext(ctx).
		Where("property_id = ? AND id = ?", propertyID, imageID).
		First(&image).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

func (r *propertyRepository) DeleteImage(ctx context.Context, imageID uint) error {
	return r.db.WithContext(ctx).Delete(&models.PropertyImage{}, imageID).Error
}
