package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/internal/repository"
	"github.com/Eursukkul/rental-marketplace/pkg/logger"
	"github.com/Eursukkul/rental-marketplace/pkg/search"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"gorm.io/gorm"
)

// SearchIndex is the managed search engine. *search.ElasticClient implements it.
type SearchIndex interface {
	Index(ctx context.Context, doc search.Document) error
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, q search.Query) (*search.Result, error)
}

type SearchService interface {
	Search(ctx context.Context, q search.Query) (*search.Result, error)
	IndexProperty(ctx context.Context, id uint) error
	RemoveProperty(ctx context.Context, id uint) error
	Reindex(ctx context.Context) (int, error)
}

type searchService struct {
	index        SearchIndex
	propertyRepo repository.PropertyRepository
}

// NewSearchService falls back to database queries when index is nil.
func NewSearchService(index SearchIndex, propertyRepo repository.PropertyRepository) SearchService {
	return &searchService{index: index, propertyRepo: propertyRepo}
}

func (s *searchService) Search(ctx context.Context, q search.Query) (*search.Result, error) {
	if s.index != nil {
		res, err := s.index.Search(ctx, q)
		if err == nil {
			return res, nil
		}
		logger.Log.WithError(err).Warn("Search index query failed, falling back to database")
	}
	return s.searchDB(ctx, q)
}

func (s *searchService) searchDB(ctx context.Context, q search.Query) (*search.Result, error) {
	available := true
	filter := repository.PropertyFilter{
		Query:        q.Text,
		City:         q.City,
		PropertyType: models.PropertyType(q.PropertyType),
		ListingType:  models.ListingType(q.ListingType),
		MinPrice:     q.MinPrice,
		MaxPrice:     q.MaxPrice,
		Bedrooms:     q.Bedrooms,
		Guests:       q.Guests,
		Available:    &available,
	}

	if !q.HasGeo() {
		filter.Offset, filter.Limit = q.From, q.Size
		properties, total, err := s.propertyRepo.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		return toResult(properties, total), nil
	}

	center := orb.Point{*q.Lng, *q.Lat}
	bound := geo.NewBoundAroundPoint(center, q.RadiusKm*1000)
	minLat, maxLat := bound.Bottom(), bound.Top()
	minLng, maxLng := bound.Left(), bound.Right()
	filter.MinLat, filter.MaxLat = &minLat, &maxLat
	filter.MinLng, filter.MaxLng = &minLng, &maxLng

	candidates, _, err := s.propertyRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	type hit struct {
		p    models.Property
		dist float64
	}
	hits := make([]hit, 0, len(candidates))
	for _, p := range candidates {
		if !p.HasCoordinates() {
			continue
		}
		d := geo.Distance(center, orb.Point{*p.Longitude, *p.Latitude})
		if d <= q.RadiusKm*1000 {
			hits = append(hits, hit{p: p, dist: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	total := int64(len(hits))
	start := min(q.From, len(hits))
	end := len(hits)
	if q.Size > 0 {
		end = min(start+q.Size, len(hits))
	}
	page := make([]models.Property, 0, end-start)
	for _, h := range hits[start:end] {
		page = append(page, h.p)
	}
	return toResult(page, total), nil
}

func toResult(properties []models.Property, total int64) *search.Result {
	res := &search.Result{Total: total, Hits: make([]search.Document, 0, len(properties))}
	for i := range properties {
		res.Hits = append(res.Hits, ToDocument(&properties[i]))
	}
	return res
}

// ToDocument flattens a property into its search representation.
func ToDocument(p *models.Property) search.Document {
	doc := search.Document{
		ID:           p.ID,
		OwnerID:      p.OwnerID,
		Title:        p.Title,
		Description:  p.Description,
		PropertyType: string(p.PropertyType),
		ListingType:  string(p.ListingType),
		Address:      p.Address,
		City:         p.City,
		Country:      p.Country,
		Price:        p.Price,
		Currency:     p.Currency,
		Bedrooms:     p.Bedrooms,
		Bathrooms:    p.Bathrooms,
		MaxGuests:    p.MaxGuests,
		Amenities:    p.Amenities,
		IsAvailable:  p.IsAvailable,
		CreatedAt:    p.CreatedAt,
	}
	if p.HasCoordinates() {
		doc.Location = &search.GeoPoint{Lat: *p.Latitude, Lon: *p.Longitude}
	}
	if len(p.Images) > 0 {
		doc.ImageURL = p.Images[0].URL
	}
	return doc
}

func (s *searchService) IndexProperty(ctx context.Context, id uint) error {
	if s.index == nil {
		return nil
	}
	p, err := s.propertyRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.index.Delete(ctx, id)
		}
		return err
	}
	return s.index.Index(ctx, ToDocument(p))
}

func (s *searchService) RemoveProperty(ctx context.Context, id uint) error {
	if s.index == nil {
		return nil
	}
	return s.index.Delete(ctx, id)
}

func (s *searchService) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, ErrSearchDisabled
	}
	count := 0
	err := s.propertyRepo.EachBatch(ctx, 200, func(batch []models.Property) error {
		for i := range batch {
			if err := s.index.Index(ctx, ToDocument(&batch[i])); err != nil {
				return fmt.Errorf("index property %d: %w", batch[i].ID, err)
			}
			count++
		}
		return nil
	})
	logger.Log.WithField("count", count).Info("Search reindex finished")
	return count, err
}
