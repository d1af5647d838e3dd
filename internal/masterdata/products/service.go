package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/awais2000/Blue-Star/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, form ProductForm) (Product, error) {
	product, err := fromForm(form)
	if err != nil {
		return Product{}, err
	}
	product.IsActive = true
	return s.repo.Create(ctx, product)
}

func (s *Service) Update(ctx context.Context, id int64, form ProductForm) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrInvalidID
	}
	product, err := fromForm(form)
	if err != nil {
		return Product{}, err
	}
	if err := s.repo.Update(ctx, id, product); err != nil {
		return Product{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete deactivates the product. Deactivation is one way; historic sales
// keep referencing the row.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}

func fromForm(form ProductForm) (Product, error) {
	name := strings.TrimSpace(form.Name)
	if name == "" {
		return Product{}, fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	if form.Rate < 0 || form.Cost < 0 {
		return Product{}, fmt.Errorf("%w: rate and cost must not be negative", shared.ErrRequiredField)
	}
	if form.Quantity < 0 {
		return Product{}, fmt.Errorf("%w: quantity must not be negative", shared.ErrRequiredField)
	}
	return Product{
		Name:        name,
		Model:       strings.TrimSpace(form.Model),
		Category:    strings.TrimSpace(form.Category),
		Rate:        form.Rate,
		Cost:        form.Cost,
		Quantity:    form.Quantity,
		Image:       strings.TrimSpace(form.Image),
		Description: strings.TrimSpace(form.Description),
	}, nil
}
