package receipt

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsRepository stores the active printer format. The table holds a
// single row.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository constructs a SettingsRepository.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Get returns the configured format, defaulting to thermal when unset.
func (r *SettingsRepository) Get(ctx context.Context) (Format, error) {
	var format Format
	err := r.pool.QueryRow(ctx,
		`SELECT format FROM printer_settings WHERE id = 1`).Scan(&format)
	if errors.Is(err, pgx.ErrNoRows) {
		return FormatThermal, nil
	}
	if err != nil {
		return "", err
	}
	if !format.Valid() {
		return FormatThermal, nil
	}
	return format, nil
}

// Set stores the format.
func (r *SettingsRepository) Set(ctx context.Context, format Format) error {
	if !format.Valid() {
		return ErrUnknownFormat
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO printer_settings (id, format, updated_at) VALUES (1, $1, NOW())
		 ON CONFLICT (id) DO UPDATE SET format = EXCLUDED.format, updated_at = NOW()`,
		format)
	return err
}
