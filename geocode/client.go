package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// ErrNoResult means the geocoder answered but matched nothing; callers
// leave the listing's coordinates absent and carry on.
var ErrNoResult = errors.New("geocode: no result")

type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Client resolves free-text locations through the Nominatim search API.
// Nominatim's usage policy allows one request per second per service, so
// every call goes through a shared limiter.
type Client struct {
	baseURL   string
	userAgent string
	http      *retryablehttp.Client
	limiter   *rate.Limiter
}

func NewClient(baseURL, userAgent string) *Client {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = 8 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      rc,
		limiter:   rate.NewLimiter(rate.Limit(1), 1),
	}
}

// Resolve returns the first match for a location, Nominatim order.
func (c *Client) Resolve(ctx context.Context, location string) (Point, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Point{}, err
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("q", location)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return Point{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Point{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Point{}, fmt.Errorf("geocode error %d", resp.StatusCode)
	}

	// Nominatim encodes lat/lon as strings.
	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Point{}, err
	}
	if len(results) == 0 {
		return Point{}, ErrNoResult
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Point{}, fmt.Errorf("geocode: bad latitude %q", results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Point{}, fmt.Errorf("geocode: bad longitude %q", results[0].Lon)
	}
	return Point{Lat: lat, Lon: lon}, nil
}
