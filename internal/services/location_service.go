package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"srh_chat_go_backend/internal/models"

	"github.com/rs/zerolog"
)

const (
	DefaultGeoPrimaryURL  = "https://ipapi.co"
	DefaultGeoFallbackURL = "http://ip-api.com"
	DefaultGeoTimeout     = 5 * time.Second
)

// Location is a resolved position. Region is always a valid region code.
type Location struct {
	Latitude  float64
	Longitude float64
	Country   string
	Region    string
	Source    string
}

// DefaultLocation is Addis Ababa, used whenever detection cannot place the
// user inside a known region.
func DefaultLocation() *Location {
	return &Location{
		Latitude:  models.DefaultLatitude,
		Longitude: models.DefaultLongitude,
		Country:   "Ethiopia",
		Region:    models.DefaultRegion,
		Source:    "default",
	}
}

// LocationService asks ipapi.co and falls back to ip-api.com.
type LocationService struct {
	client      *http.Client
	primaryURL  string
	fallbackURL string
	log         zerolog.Logger
}

func NewLocationService(primaryURL, fallbackURL string, timeout time.Duration, log zerolog.Logger) *LocationService {
	if primaryURL == "" {
		primaryURL = DefaultGeoPrimaryURL
	}
	if fallbackURL == "" {
		fallbackURL = DefaultGeoFallbackURL
	}
	if timeout <= 0 {
		timeout = DefaultGeoTimeout
	}
	return &LocationService{
		client:      &http.Client{Timeout: timeout},
		primaryURL:  strings.TrimRight(primaryURL, "/"),
		fallbackURL: strings.TrimRight(fallbackURL, "/"),
		log:         log.With().Str("component", "location_service").Logger(),
	}
}

type geoFix struct {
	lat, lon float64
	country  string
}

// DetectLocation returns an error only when both providers fail. A fix
// outside Ethiopia resolves to the default location.
func (s *LocationService) DetectLocation(ctx context.Context, clientIP string) (*Location, error) {
	providers := []struct {
		name  string
		query func(context.Context, string) (*geoFix, error)
	}{
		{"ipapi", s.queryPrimary},
		{"ip-api", s.queryFallback},
	}

	var errs []error
	for _, p := range providers {
		fix, err := p.query(ctx, clientIP)
		if err != nil {
			s.log.Warn().Err(err).Str("provider", p.name).Msg("Geolocation lookup failed")
			errs = append(errs, fmt.Errorf("%s: %w", p.name, err))
			continue
		}
		loc := resolveLocation(fix)
		loc.Source = p.name
		s.log.Info().
			Str("provider", p.name).
			Str("country", fix.country).
			Str("region", loc.Region).
			Str("coordinates", FormatCoordinates(loc.Latitude, loc.Longitude)).
			Msg("Detected location")
		return loc, nil
	}
	return nil, fmt.Errorf("all location detection methods failed: %w", errors.Join(errs...))
}

func resolveLocation(fix *geoFix) *Location {
	if !strings.EqualFold(strings.TrimSpace(fix.country), "ethiopia") {
		return DefaultLocation()
	}
	region := DetectEthiopianRegion(fix.lat, fix.lon)
	if region == "" {
		return DefaultLocation()
	}
	return &Location{Latitude: fix.lat, Longitude: fix.lon, Country: fix.country, Region: region}
}

func (s *LocationService) queryPrimary(ctx context.Context, clientIP string) (*geoFix, error) {
	url := s.primaryURL + "/json/"
	if clientIP != "" {
		url = s.primaryURL + "/" + clientIP + "/json/"
	}
	var body struct {
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		CountryName string  `json:"country_name"`
		Error       bool    `json:"error"`
		Reason      string  `json:"reason"`
	}
	if err := s.getJSON(ctx, url, &body); err != nil {
		return nil, err
	}
	if body.Error {
		return nil, fmt.Errorf("provider error: %s", body.Reason)
	}
	return &geoFix{lat: body.Latitude, lon: body.Longitude, country: orUnknown(body.CountryName)}, nil
}

func (s *LocationService) queryFallback(ctx context.Context, clientIP string) (*geoFix, error) {
	url := s.fallbackURL + "/json/" + clientIP
	var body struct {
		Status  string  `json:"status"`
		Message string  `json:"message"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		Country string  `json:"country"`
	}
	if err := s.getJSON(ctx, url, &body); err != nil {
		return nil, err
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("provider status %q: %s", body.Status, body.Message)
	}
	return &geoFix{lat: body.Lat, lon: body.Lon, country: orUnknown(body.Country)}, nil
}

func (s *LocationService) getJSON(ctx context.Context, url string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

type regionBox struct {
	code           string
	minLat, maxLat float64
	minLon, maxLon float64
}

// Approximate regional bounding boxes, checked in order. Small
// administrations come before the regions that surround them.
var regionBoxes = []regionBox{
	{"ADDIS_ABABA", 8.8, 9.3, 38.5, 39.0},
	{"HARARI", 9.25, 9.45, 42.05, 42.25},
	{"DIRE_DAWA", 9.3, 9.8, 41.5, 42.2},
	{"AFAR", 11.0, math.Inf(1), 40.0, math.Inf(1)},
	{"SOMALI", math.Inf(-1), 9.5, 42.5, math.Inf(1)},
	{"TIGRAY", 12.5, math.Inf(1), math.Inf(-1), 39.5},
	{"AMHARA", 10.0, 13.0, 36.0, 40.0},
	{"OROMIA", 4.0, 10.0, 34.0, 42.0},
	{"BENISHANGUL", 9.0, 12.5, 34.0, 36.5},
	{"GAMBELA", 6.5, 8.5, 33.0, 35.0},
	{"SOUTHWEST", 5.0, 7.5, 34.5, 37.0},
	{"SOUTH_ETH", 4.5, 7.0, 36.0, 39.0},
	{"SIDAMA", 5.5, 6.8, 38.0, 39.5},
	{"CENTRAL_ETH", 7.5, 9.5, 37.5, 39.5},
}

// DetectEthiopianRegion maps coordinates to a region code, or "" when the
// point is outside Ethiopia's bounds. Unmatched points inside the country
// default to Oromia.
func DetectEthiopianRegion(lat, lon float64) string {
	if lat < 3.0 || lat > 15.0 || lon < 33.0 || lon > 48.0 {
		return ""
	}
	for _, b := range regionBoxes {
		if lat >= b.minLat && lat <= b.maxLat && lon >= b.minLon && lon <= b.maxLon {
			return b.code
		}
	}
	return "OROMIA"
}

// FormatCoordinates renders e.g. 9.0307°N, 38.7407°E.
func FormatCoordinates(lat, lon float64) string {
	latDir, lonDir := "N", "E"
	if lat < 0 {
		latDir = "S"
	}
	if lon < 0 {
		lonDir = "W"
	}
	return fmt.Sprintf("%.4f°%s, %.4f°%s", math.Abs(lat), latDir, math.Abs(lon), lonDir)
}
