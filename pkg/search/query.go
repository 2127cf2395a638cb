package search

import (
	"fmt"
	"strings"
)

// BuildQuery renders q as an Elasticsearch request body.
func BuildQuery(q Query) map[string]any {
	var must []any
	if text := strings.TrimSpace(q.Text); text != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":     text,
				"fields":    []string{"title^3", "description", "city^2", "address"},
				"fuzziness": "AUTO",
			},
		})
	}

	filter := []any{
		map[string]any{"term": map[string]any{"is_available": true}},
	}
	if city := strings.TrimSpace(q.City); city != "" {
		// city.keyword is lowercase-normalized, matching the database filter
		filter = append(filter, map[string]any{"term": map[string]any{"city.keyword": city}})
	}
	if q.PropertyType != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"property_type": q.PropertyType}})
	}
	if q.ListingType != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"listing_type": q.ListingType}})
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		price := map[string]any{}
		if q.MinPrice != nil {
			price["gte"] = *q.MinPrice
		}
		if q.MaxPrice != nil {
			price["lte"] = *q.MaxPrice
		}
		filter = append(filter, map[string]any{"range": map[string]any{"price": price}})
	}
	if q.Bedrooms > 0 {
		filter = append(filter, map[string]any{"range": map[string]any{"bedrooms": map[string]any{"gte": q.Bedrooms}}})
	}
	if q.Guests > 0 {
		filter = append(filter, map[string]any{"range": map[string]any{"max_guests": map[string]any{"gte": q.Guests}}})
	}
	if q.HasGeo() {
		filter = append(filter, map[string]any{
			"geo_distance": map[string]any{
				"distance": fmt.Sprintf("%gkm", q.RadiusKm),
				"location": map[string]any{"lat": *q.Lat, "lon": *q.Lng},
			},
		})
	}

	boolQuery := map[string]any{"filter": filter}
	if len(must) > 0 {
		boolQuery["must"] = must
	}

	body := map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"from":  q.From,
		"size":  q.Size,
	}

	switch {
	case q.HasGeo():
		body["sort"] = []any{
			map[string]any{"_geo_distance": map[string]any{
				"location": map[string]any{"lat": *q.Lat, "lon": *q.Lng},
				"order":    "asc",
				"unit":     "km",
			}},
		}
	case len(must) == 0:
		body["sort"] = []any{map[string]any{"created_at": map[string]any{"order": "desc"}}}
	}
	return body
}

// indexMapping is applied when the index is created.
var indexMapping = map[string]any{
	"settings": map[string]any{
		"analysis": map[string]any{
			"normalizer": map[string]any{
				"lowercase": map[string]any{"type": "custom", "filter": []string{"lowercase"}},
			},
		},
	},
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":            map[string]any{"type": "long"},
			"owner_id":      map[string]any{"type": "long"},
			"title":         map[string]any{"type": "text"},
			"description":   map[string]any{"type": "text"},
			"property_type": map[string]any{"type": "keyword"},
			"listing_type":  map[string]any{"type": "keyword"},
			"address":       map[string]any{"type": "text"},
			"city": map[string]any{
				"type":   "text",
				"fields": map[string]any{"keyword": map[string]any{"type": "keyword", "normalizer": "lowercase"}},
			},
			"country":      map[string]any{"type": "keyword"},
			"price":        map[string]any{"type": "double"},
			"currency":     map[string]any{"type": "keyword"},
			"bedrooms":     map[string]any{"type": "integer"},
			"bathrooms":    map[string]any{"type": "integer"},
			"max_guests":   map[string]any{"type": "integer"},
			"amenities":    map[string]any{"type": "keyword"},
			"is_available": map[string]any{"type": "boolean"},
			"location":     map[string]any{"type": "geo_point"},
			"image_url":    map[string]any{"type": "keyword", "index": false},
			"created_at":   map[string]any{"type": "date"},
		},
	},
}
