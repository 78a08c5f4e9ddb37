package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Property struct {
	ID           ID              `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	PropertyType string          `json:"property_type"`
	Status       string          `json:"status"`
	ListingType  string          `json:"listing_type"`
	Featured     bool            `json:"featured"`
	Address      string          `json:"address"`
	City         string          `json:"city"`
	State        string          `json:"state"`
	Price        decimal.Decimal `json:"price"`
	ViewingFee   decimal.Decimal `json:"viewing_fee"`
	Bedrooms     int             `json:"bedrooms"`
	Bathrooms    decimal.Decimal `json:"bathrooms"`
	CreatedAt    time.Time       `json:"created_at"`
}

type Interest struct {
	ID        ID        `json:"id"`
	Property  ID        `json:"property"`
	CreatedAt time.Time `json:"created_at"`
}
