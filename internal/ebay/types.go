package ebay

import (
	"encoding/json"
	"strings"
)

// ItemSummary is the subset of a Browse API item summary the deal finder reads.
type ItemSummary struct {
	ItemID          string           `json:"itemId"`
	Title           string           `json:"title"`
	Price           *Amount          `json:"price,omitempty"`
	ItemWebURL      string           `json:"itemWebUrl"`
	Image           *Image           `json:"image,omitempty"`
	ShippingOptions []ShippingOption `json:"shippingOptions,omitempty"`
}

// Amount is a monetary value as the API sends it: a decimal string.
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type Image struct {
	ImageURL string `json:"imageUrl"`
}

type ShippingOption struct {
	ShippingCostType string  `json:"shippingCostType,omitempty"`
	ShippingCost     *Amount `json:"shippingCost,omitempty"`
	FreeShipping     Flag    `json:"freeShipping,omitempty"`
}

// Flag decodes booleans sent either as JSON booleans or as "true"/"false"
// strings.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Flag(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*f = false
		return nil
	}
	*f = Flag(strings.EqualFold(strings.TrimSpace(s), "true"))
	return nil
}

type searchResponse struct {
	Total         int           `json:"total"`
	Next          string        `json:"next"`
	ItemSummaries []ItemSummary `json:"itemSummaries"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Query describes one keyword search.
type Query struct {
	Keywords   string
	CategoryID string
	MaxPrice   float64
	FullSearch bool
}

// Result is every item fetched for a query plus the API's reported total.
type Result struct {
	Items []ItemSummary
	Total int
}
