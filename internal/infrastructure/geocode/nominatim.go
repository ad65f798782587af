// Package geocode reverse-geocodes coordinates through Nominatim. Results
// are best effort: enrichment must never block or fail an ingest, so every
// error path degrades to a nil result.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"location-tracking-core/internal/config"
	"location-tracking-core/internal/domain/location"
	"location-tracking-core/internal/infrastructure/redis"
)

type Geocoder struct {
	config  *config.GeocoderConfig
	http    *http.Client
	limiter *rate.Limiter
	cache   *redis.Cache
}

// NewGeocoder builds a geocoder. cache may be nil; lookups then always hit
// the upstream service (still paced by the limiter).
func NewGeocoder(config *config.GeocoderConfig, cache *redis.Cache) *Geocoder {
	interval := config.MinInterval
	if interval <= 0 {
		interval = 1100 * time.Millisecond // Nominatim usage policy: max 1 req/s
	}

	return &Geocoder{
		config:  config,
		http:    &http.Client{Timeout: config.RequestTimeout},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		cache:   cache,
	}
}

type nominatimResponse struct {
	Address struct {
		City     string `json:"city"`
		Town     string `json:"town"`
		Village  string `json:"village"`
		State    string `json:"state"`
		Province string `json:"province"`
	} `json:"address"`
}

// Reverse resolves coordinates to a city and province. A nil result with a
// nil error means the lookup was skipped or failed; callers treat it as
// "no geocode available".
func (g *Geocoder) Reverse(ctx context.Context, lat, lon float64) (*location.Geocode, error) {
	if g.cache != nil {
		if cached, err := g.cache.GetGeocode(ctx, lat, lon); err == nil && cached != nil {
			return cached, nil
		}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := g.lookup(ctx, lat, lon)
	if err != nil {
		log.Printf("Reverse geocode failed for (%.4f, %.4f): %v", lat, lon, err)
		return nil, nil
	}

	if g.cache != nil && result != nil {
		if err := g.cache.SetGeocode(ctx, lat, lon, result, g.config.CacheTTL); err != nil {
			log.Printf("Failed to cache geocode result: %v", err)
		}
	}

	return result, nil
}

func (g *Geocoder) lookup(ctx context.Context, lat, lon float64) (*location.Geocode, error) {
	endpoint := fmt.Sprintf("%s/reverse?%s", g.config.BaseURL, url.Values{
		"lat":    {fmt.Sprintf("%f", lat)},
		"lon":    {fmt.Sprintf("%f", lon)},
		"format": {"json"},
		"zoom":   {"10"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.config.UserAgent)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim returned status %d", resp.StatusCode)
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	city := body.Address.City
	if city == "" {
		city = body.Address.Town
	}
	if city == "" {
		city = body.Address.Village
	}

	province := body.Address.State
	if province == "" {
		province = body.Address.Province
	}

	if city == "" && province == "" {
		return nil, nil
	}

	return &location.Geocode{City: city, Province: province}, nil
}
