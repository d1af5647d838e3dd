// Package products manages the sale item catalog.
package products

import "time"

// Product represents a catalog item. Rate is the quoted sale price per unit,
// Quantity the on-hand stock count, Image a stored reference to an uploaded
// picture (the upload itself happens elsewhere).
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Model       string    `json:"model,omitempty"`
	Category    string    `json:"category,omitempty"`
	Rate        float64   `json:"rate"`
	Cost        float64   `json:"cost,omitempty"`
	Quantity    float64   `json:"quantity"`
	Image       string    `json:"image,omitempty"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
