package models

import "github.com/shopspring/decimal"

// ProviderProfile is the public profile of a service provider (a barber).
// Profiles are created out-of-band; the core only reads them.
type ProviderProfile struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Phone       string   `json:"phone"`
	Email       string   `json:"email"`
	ServiceIDs  []string `json:"services"`
}

// Service is a bookable service owned by exactly one provider.
type Service struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}
