package customers

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	if id <= 0 {
		return Customer{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, form CustomerForm) (Customer, error) {
	customer, err := fromForm(form)
	if err != nil {
		return Customer{}, err
	}
	customer.IsActive = true
	return s.repo.Create(ctx, customer)
}

func (s *Service) Update(ctx context.Context, id int64, form CustomerForm) (Customer, error) {
	if id <= 0 {
		return Customer{}, shared.ErrInvalidID
	}
	customer, err := fromForm(form)
	if err != nil {
		return Customer{}, err
	}
	if err := s.repo.Update(ctx, id, customer); err != nil {
		return Customer{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete deactivates the customer. Deactivation is one way.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}

func fromForm(form CustomerForm) (Customer, error) {
	name := strings.TrimSpace(form.Name)
	if name == "" {
		return Customer{}, fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	contact := strings.TrimSpace(form.Contact)
	if contact == "" {
		return Customer{}, fmt.Errorf("%w: contact", shared.ErrRequiredField)
	}
	return Customer{
		Name:    name,
		Contact: contact,
		Address: strings.TrimSpace(form.Address),
		Email:   strings.TrimSpace(form.Email),
		TRN:     strings.TrimSpace(form.TRN),
	}, nil
}
