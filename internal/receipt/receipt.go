// Package receipt renders printable invoice receipts and keeps the shop's
// printer configuration.
package receipt

import "errors"

// Format selects the receipt layout.
type Format string

const (
	// FormatThermal targets 80mm roll printers.
	FormatThermal Format = "thermal"
	// FormatA4 targets regular page printers.
	FormatA4 Format = "a4"
)

// Business is the header block printed on every receipt.
type Business struct {
	Name    string
	Address string
	Contact string
}

var ErrUnknownFormat = errors.New("receipt: unknown printer format")

// Valid reports whether the format is one of the supported layouts.
func (f Format) Valid() bool {
	return f == FormatThermal || f == FormatA4
}
