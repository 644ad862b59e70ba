package geoloc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/pomodoroso/pizzanova/despensa"
)

var tracer = otel.Tracer("geoloc")

// ErrNoResults means a forward search matched nothing.
var ErrNoResults = errors.New("geoloc: no results")

type Place struct {
	DisplayName string
	Lat         float64
	Lon         float64
}

// Geocoder resolves addresses against a Nominatim-compatible service.
type Geocoder struct {
	httpClient *http.Client
	baseURL    string
}

func NewGeocoder(cfg despensa.GeocoderSettings) *Geocoder {
	return &Geocoder{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutInSec) * time.Second,
		},
		baseURL: cfg.BaseURL,
	}
}

// CoordinateLabel is the degraded address representation used whenever
// geocoding fails. Selecting a location must never fail outright.
func CoordinateLabel(lat, lon float64) string {
	return fmt.Sprintf("%.5f, %.5f", lat, lon)
}

// Reverse turns coordinates into a display address. The returned label is
// always usable; on failure it is the raw coordinates and err says why.
func (g *Geocoder) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	ctx, span := tracer.Start(ctx, "Geocoder.Reverse")
	defer span.End()

	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("addressdetails", "1")

	var resp struct {
		DisplayName string `json:"display_name"`
	}
	if err := g.get(ctx, "/reverse", q, &resp); err != nil {
		return CoordinateLabel(lat, lon), err
	}
	if resp.DisplayName == "" {
		return CoordinateLabel(lat, lon), ErrNoResults
	}
	return resp.DisplayName, nil
}

// Search forward-geocodes free text into the best matching place.
func (g *Geocoder) Search(ctx context.Context, query string) (Place, error) {
	ctx, span := tracer.Start(ctx, "Geocoder.Search")
	defer span.End()

	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", query)
	q.Set("limit", "1")

	var resp []struct {
		DisplayName string `json:"display_name"`
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
	}
	if err := g.get(ctx, "/search", q, &resp); err != nil {
		return Place{}, err
	}
	if len(resp) == 0 {
		return Place{}, ErrNoResults
	}

	lat, _ := strconv.ParseFloat(resp[0].Lat, 64)
	lon, _ := strconv.ParseFloat(resp[0].Lon, 64)
	return Place{DisplayName: resp[0].DisplayName, Lat: lat, Lon: lon}, nil
}

func (g *Geocoder) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	// Nominatim's usage policy wants an identifying agent.
	req.Header.Set("User-Agent", "pizzanova-storefront")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocoder returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
