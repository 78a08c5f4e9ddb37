package handler

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/estate-checkout/internal/domain"
	"github.com/josh-kwaku/estate-checkout/internal/sandbox"
)

type propertyStore interface {
	ListProperties(ctx context.Context, f sandbox.PropertyFilter) []domain.Property
	GetProperty(ctx context.Context, id string) (*domain.Property, error)
	AddInterest(ctx context.Context, userID uuid.UUID, propertyID string) (*domain.Interest, bool, error)
}

type PropertyHandler struct {
	properties propertyStore
}

func NewPropertyHandler(properties propertyStore) *PropertyHandler {
	return &PropertyHandler{properties: properties}
}

type interestRequest struct {
	Property domain.ID `json:"property"`
}

func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	f, fields := parsePropertyFilter(r.URL.Query())
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}
	RespondJSON(w, http.StatusOK, h.properties.ListProperties(r.Context(), f))
}

func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.properties.GetProperty(r.Context(), r.PathValue("id"))
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, p)
}

func (h *PropertyHandler) CreateInterest(w http.ResponseWriter, r *http.Request) {
	userID, appErr := callerID(r)
	if appErr != nil {
		RespondAppError(w, appErr)
		return
	}

	var req interestRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		RespondAppError(w, appErr)
		return
	}
	if req.Property == "" {
		RespondValidationError(w, []domain.FieldError{{Field: "property", Message: "This field is required."}})
		return
	}

	in, created, err := h.properties.AddInterest(r.Context(), userID, req.Property.String())
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	RespondJSON(w, status, in)
}

func parsePropertyFilter(q url.Values) (sandbox.PropertyFilter, []domain.FieldError) {
	f := sandbox.PropertyFilter{
		PropertyType: q.Get("property_type"),
		ListingType:  q.Get("listing_type"),
		City:         q.Get("city"),
		Featured:     q.Get("featured") == "true",
	}

	var errs []domain.FieldError
	for key, dst := range map[string]*decimal.Decimal{"min_price": &f.MinPrice, "max_price": &f.MaxPrice} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: key, Message: "Enter a number."})
			continue
		}
		*dst = d
	}
	if v := q.Get("bedrooms"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, domain.FieldError{Field: "bedrooms", Message: "Enter a whole number."})
		} else {
			f.Bedrooms = n
		}
	}
	return f, errs
}
