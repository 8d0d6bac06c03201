package market

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

var ErrNotFound = errors.New("market: not found")

// Client talks to the marketplace REST backend. All durable marketplace
// state (listings, favorites, messages, users) lives behind it.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 900 * time.Millisecond
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = 6 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL: baseURL,
		http:    rc,
	}
}

func (c *Client) do(ctx context.Context, method, path, token string, body []byte) ([]byte, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 400 {
		var detail map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&detail)
		return nil, fmt.Errorf("market error %d: %v", resp.StatusCode, detail)
	}
	return ioReadAllLimit(resp.Body, 16<<20) // listings carry data-URI images
}

// FetchListings returns the raw GET /api/listings payload.
func (c *Client) FetchListings(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/api/listings", "", nil)
}

func (c *Client) FetchListing(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/api/listings/"+url.PathEscape(id), "", nil)
}

func (c *Client) CreateListing(ctx context.Context, token string, listing []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, "/api/listings", token, listing)
}

func (c *Client) UpdateListing(ctx context.Context, token, id string, listing []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPut, "/api/listings/"+url.PathEscape(id), token, listing)
}

func (c *Client) DeleteListing(ctx context.Context, token, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/listings/"+url.PathEscape(id), token, nil)
	return err
}

// FetchFavorites returns the raw GET /api/favorites/{email} payload,
// an array of listing ids favorited by that user.
func (c *Client) FetchFavorites(ctx context.Context, email string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/api/favorites/"+url.PathEscape(email), "", nil)
}

type favoriteBody struct {
	UserEmail string `json:"user_email"`
	ListingID string `json:"listing_id"`
}

func (c *Client) AddFavorite(ctx context.Context, email, listingID string) error {
	b, _ := json.Marshal(favoriteBody{UserEmail: email, ListingID: listingID})
	_, err := c.do(ctx, http.MethodPost, "/api/favorites", "", b)
	return err
}

func (c *Client) RemoveFavorite(ctx context.Context, email, listingID string) error {
	b, _ := json.Marshal(favoriteBody{UserEmail: email, ListingID: listingID})
	_, err := c.do(ctx, http.MethodDelete, "/api/favorites", "", b)
	return err
}

// FetchMessages returns every message on a listing's thread; callers filter
// down to the conversations the current user participates in.
func (c *Client) FetchMessages(ctx context.Context, listingID string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/api/messages/"+url.PathEscape(listingID), "", nil)
}

func (c *Client) SendMessage(ctx context.Context, listingID string, msg Message) (Message, error) {
	b, _ := json.Marshal(msg)
	raw, err := c.do(ctx, http.MethodPost, "/api/messages/"+url.PathEscape(listingID), "", b)
	if err != nil {
		return Message{}, err
	}
	return MapMessage(raw)
}

func (c *Client) DeleteMessage(ctx context.Context, listingID, messageID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/messages/"+url.PathEscape(listingID)+"/"+url.PathEscape(messageID), "", nil)
	return err
}

func ioReadAllLimit(r io.Reader, limit int64) ([]byte, error) {
	lr := io.LimitReader(r, limit+1)
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errors.New("payload too large")
	}
	return b, nil
}
