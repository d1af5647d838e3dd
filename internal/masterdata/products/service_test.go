package products

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/awais2000/Blue-Star/internal/masterdata/shared"
)

type fakeRepo struct {
	items  map[int64]Product
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: make(map[int64]Product)}
}

func (f *fakeRepo) List(_ context.Context, filters shared.ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range f.items {
		if filters.IsActive != nil && p.IsActive != *filters.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Product, error) {
	p, ok := f.items[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) Create(_ context.Context, product Product) (Product, error) {
	f.nextID++
	product.ID = f.nextID
	f.items[product.ID] = product
	return product, nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, product Product) error {
	current, ok := f.items[id]
	if !ok || !current.IsActive {
		return shared.ErrNotFound
	}
	product.ID = id
	product.IsActive = current.IsActive
	f.items[id] = product
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	current, ok := f.items[id]
	if !ok || !current.IsActive {
		return shared.ErrNotFound
	}
	current.IsActive = false
	f.items[id] = current
	return nil
}

func TestCreateTrimsAndActivates(t *testing.T) {
	svc := NewService(newFakeRepo())

	product, err := svc.Create(context.Background(), ProductForm{Name: "  iPhone 12  ", Model: "A2403", Rate: 2500})
	require.NoError(t, err)
	require.Equal(t, "iPhone 12", product.Name)
	require.True(t, product.IsActive)
}

func TestCreateKeepsStockAndImage(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	product, err := svc.Create(ctx, ProductForm{
		Name:     "iPhone 12 Screen",
		Rate:     250,
		Quantity: 12,
		Image:    " uploads/iphone12-screen.jpg ",
	})
	require.NoError(t, err)
	require.Equal(t, 12.0, product.Quantity)
	require.Equal(t, "uploads/iphone12-screen.jpg", product.Image)

	updated, err := svc.Update(ctx, product.ID, ProductForm{Name: "iPhone 12 Screen", Rate: 250, Quantity: 9})
	require.NoError(t, err)
	require.Equal(t, 9.0, updated.Quantity)
	require.Empty(t, updated.Image)

	_, err = svc.Create(ctx, ProductForm{Name: "Bad", Quantity: -1})
	require.ErrorIs(t, err, shared.ErrRequiredField)
}

func TestCreateRequiresName(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Create(context.Background(), ProductForm{Name: "   "})
	require.ErrorIs(t, err, shared.ErrRequiredField)
}

func TestDeleteIsOneWay(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	product, err := svc.Create(ctx, ProductForm{Name: "Charger", Rate: 45})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, product.ID))
	require.False(t, repo.items[product.ID].IsActive)

	require.ErrorIs(t, svc.Delete(ctx, product.ID), shared.ErrNotFound)

	_, err = svc.Update(ctx, product.ID, ProductForm{Name: "Charger v2", Rate: 50})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetRejectsInvalidID(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Get(context.Background(), 0)
	require.ErrorIs(t, err, shared.ErrInvalidID)
}
