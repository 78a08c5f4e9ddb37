package sandbox

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/estate-checkout/internal/domain"
)

type interestRecord struct {
	interest domain.Interest
	userID   uuid.UUID
}

// PropertyFilter mirrors the listing query parameters. Zero values match
// everything.
type PropertyFilter struct {
	PropertyType string
	ListingType  string
	City         string
	MinPrice     decimal.Decimal
	MaxPrice     decimal.Decimal
	Bedrooms     int
	Featured     bool
}

func (f PropertyFilter) matches(p domain.Property) bool {
	switch {
	case f.PropertyType != "" && !strings.EqualFold(p.PropertyType, f.PropertyType):
		return false
	case f.ListingType != "" && !strings.EqualFold(p.ListingType, f.ListingType):
		return false
	case f.City != "" && !strings.EqualFold(p.City, f.City):
		return false
	case f.MinPrice.IsPositive() && p.Price.LessThan(f.MinPrice):
		return false
	case f.MaxPrice.IsPositive() && p.Price.GreaterThan(f.MaxPrice):
		return false
	case f.Bedrooms > 0 && p.Bedrooms < f.Bedrooms:
		return false
	case f.Featured && !p.Featured:
		return false
	}
	return true
}

// ActiveIntegrations lists the integrations checkout may use.
func (s *Store) ActiveIntegrations(_ context.Context) []domain.Integration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Integration, 0, len(s.integrations))
	for _, in := range s.integrations {
		if in.IsActive {
			out = append(out, in)
		}
	}
	return out
}

func (s *Store) integration(id string) (domain.Integration, bool) {
	for _, in := range s.integrations {
		if string(in.ID) == id {
			return in, true
		}
	}
	return domain.Integration{}, false
}

func (s *Store) ListProperties(_ context.Context, f PropertyFilter) []domain.Property {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Property, 0, len(s.properties))
	for _, p := range s.properties {
		if f.matches(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *Store) GetProperty(_ context.Context, id string) (*domain.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.properties {
		if string(p.ID) == id {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("GetProperty: %w", domain.ErrNotFound)
}

// AddInterest records interest once per user and property; repeats return
// the existing record.
func (s *Store) AddInterest(ctx context.Context, userID uuid.UUID, propertyID string) (*domain.Interest, bool, error) {
	if _, err := s.GetProperty(ctx, propertyID); err != nil {
		return nil, false, fmt.Errorf("AddInterest: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.interests {
		if rec.userID == userID && string(rec.interest.Property) == propertyID {
			in := rec.interest
			return &in, false, nil
		}
	}

	in := domain.Interest{
		ID:        domain.ID(strconv.Itoa(len(s.interests) + 1)),
		Property:  domain.ID(propertyID),
		CreatedAt: s.now().UTC(),
	}
	s.interests = append(s.interests, interestRecord{interest: in, userID: userID})
	return &in, true, nil
}

func (s *Store) seed() {
	listed := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	s.integrations = []domain.Integration{
		{ID: "paynow-1", Name: "Paynow USD", Currency: domain.CurrencyUSD, IsActive: true},
		{ID: "paynow-2", Name: "Paynow ZWD", Currency: domain.CurrencyZWD, IsActive: true},
		{ID: "paynow-legacy", Name: "Paynow (legacy)", Currency: domain.CurrencyUSD},
	}

	s.properties = []domain.Property{
		{
			ID: "1", Title: "Family home in Borrowdale", PropertyType: "house", Status: "available",
			ListingType: "sale", Featured: true, Address: "12 Whitwell Rd", City: "Harare", State: "Harare",
			Price: decimal.NewFromInt(250000), ViewingFee: decimal.NewFromInt(20), Bedrooms: 4,
			Bathrooms: decimal.NewFromInt(3), CreatedAt: listed,
		},
		{
			ID: "2", Title: "Garden flat in Avondale", PropertyType: "apartment", Status: "available",
			ListingType: "rent", Address: "4 King George Rd", City: "Harare", State: "Harare",
			Price: decimal.NewFromInt(650), ViewingFee: decimal.NewFromInt(5), Bedrooms: 2,
			Bathrooms: decimal.NewFromInt(1), CreatedAt: listed.AddDate(0, 0, 3),
		},
		{
			ID: "3", Title: "Townhouse in Hillside", PropertyType: "townhouse", Status: "available",
			ListingType: "sale", Featured: true, Address: "88 Cecil Ave", City: "Bulawayo", State: "Bulawayo",
			Price: decimal.NewFromInt(95000), ViewingFee: decimal.NewFromInt(10), Bedrooms: 3,
			Bathrooms: decimal.RequireFromString("2.5"), CreatedAt: listed.AddDate(0, 1, 0),
		},
		{
			ID: "4", Title: "Stand in Ruwa", PropertyType: "land", Status: "available",
			ListingType: "sale", Address: "Plot 1120, Ruwa", City: "Ruwa", State: "Mashonaland East",
			Price: decimal.NewFromInt(18000), Bedrooms: 0, CreatedAt: listed.AddDate(0, 1, 10),
		},
	}
}
