// Package customers manages the customer directory the ledger and sales
// modules reference.
package customers

import "time"

// Customer represents a shop customer. TRN is the tax registration number
// printed on tax invoices, empty for individuals.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact"`
	Address   string    `json:"address,omitempty"`
	Email     string    `json:"email,omitempty"`
	TRN       string    `json:"trn,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
