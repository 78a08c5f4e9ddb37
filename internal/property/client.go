package property

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/estate-checkout/internal/apiclient"
	"github.com/josh-kwaku/estate-checkout/internal/domain"
)

const (
	PathProperties = "properties/properties/"
	PathInterests  = "properties/interests/"
)

type api interface {
	Get(ctx context.Context, path string, query url.Values) (*apiclient.Response, error)
	Post(ctx context.Context, path string, body any) (*apiclient.Response, error)
}

// Filter narrows a property listing. Zero values are left out of the query.
type Filter struct {
	PropertyType string
	ListingType  string
	City         string
	MinPrice     decimal.Decimal
	MaxPrice     decimal.Decimal
	Bedrooms     int
	Featured     bool
}

func (f Filter) Query() url.Values {
	q := url.Values{}
	if f.PropertyType != "" {
		q.Set("property_type", f.PropertyType)
	}
	if f.ListingType != "" {
		q.Set("listing_type", f.ListingType)
	}
	if f.City != "" {
		q.Set("city", f.City)
	}
	if f.MinPrice.IsPositive() {
		q.Set("min_price", f.MinPrice.String())
	}
	if f.MaxPrice.IsPositive() {
		q.Set("max_price", f.MaxPrice.String())
	}
	if f.Bedrooms > 0 {
		q.Set("bedrooms", strconv.Itoa(f.Bedrooms))
	}
	if f.Featured {
		q.Set("featured", "true")
	}
	return q
}

type Client struct {
	api api
}

func NewClient(client api) *Client {
	return &Client{api: client}
}

func (c *Client) List(ctx context.Context, f Filter) ([]domain.Property, error) {
	resp, err := c.api.Get(ctx, PathProperties, f.Query())
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}

	var items []domain.Property
	if err := resp.Decode(&items); err == nil {
		return items, nil
	}

	var page struct {
		Results []domain.Property `json:"results"`
	}
	if err := resp.Decode(&page); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return page.Results, nil
}

func (c *Client) Get(ctx context.Context, id domain.ID) (*domain.Property, error) {
	resp, err := c.api.Get(ctx, PathProperties+url.PathEscape(id.String())+"/", nil)
	if err != nil {
		if apiclient.StatusCode(err) == http.StatusNotFound {
			return nil, fmt.Errorf("Get: property %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}

	var p domain.Property
	if err := resp.Decode(&p); err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &p, nil
}

// ExpressInterest records the signed-in user's interest in a property.
func (c *Client) ExpressInterest(ctx context.Context, id domain.ID) (*domain.Interest, error) {
	resp, err := c.api.Post(ctx, PathInterests, map[string]string{"property": id.String()})
	if err != nil {
		if apiclient.StatusCode(err) == http.StatusNotFound {
			return nil, fmt.Errorf("ExpressInterest: property %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("ExpressInterest: %w", err)
	}

	var in domain.Interest
	if err := resp.Decode(&in); err != nil {
		return nil, fmt.Errorf("ExpressInterest: %w", err)
	}
	return &in, nil
}
