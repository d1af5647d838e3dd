package customers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/awais2000/Blue-Star/internal/masterdata/shared"
)

type fakeRepo struct {
	items    map[int64]Customer
	contacts map[string]int64
	nextID   int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: make(map[int64]Customer), contacts: make(map[string]int64)}
}

func (f *fakeRepo) List(_ context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	var out []Customer
	for _, c := range f.items {
		if filters.IsActive != nil && c.IsActive != *filters.IsActive {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Customer, error) {
	c, ok := f.items[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) Create(_ context.Context, customer Customer) (Customer, error) {
	if _, exists := f.contacts[customer.Contact]; exists {
		return Customer{}, shared.ErrDuplicate
	}
	f.nextID++
	customer.ID = f.nextID
	f.items[customer.ID] = customer
	f.contacts[customer.Contact] = customer.ID
	return customer, nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, customer Customer) error {
	current, ok := f.items[id]
	if !ok || !current.IsActive {
		return shared.ErrNotFound
	}
	if owner, exists := f.contacts[customer.Contact]; exists && owner != id {
		return shared.ErrDuplicate
	}
	delete(f.contacts, current.Contact)
	customer.ID = id
	customer.IsActive = current.IsActive
	f.items[id] = customer
	f.contacts[customer.Contact] = id
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

func TestCreateCustomer(t *testing.T) {
	svc := NewService(newFakeRepo())

	customer, err := svc.Create(context.Background(), CustomerForm{Name: " Ali Hassan ", Contact: "+971554831700"})
	require.NoError(t, err)
	require.Equal(t, "Ali Hassan", customer.Name)
	require.True(t, customer.IsActive)
}

func TestCreateRequiresNameAndContact(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CustomerForm{Contact: "+97150"})
	require.ErrorIs(t, err, shared.ErrRequiredField)
	_, err = svc.Create(ctx, CustomerForm{Name: "Ali"})
	require.ErrorIs(t, err, shared.ErrRequiredField)
}

func TestCreateDuplicateContact(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CustomerForm{Name: "Ali", Contact: "+97150"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CustomerForm{Name: "Omar", Contact: "+97150"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestDeleteIsOneWay(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	customer, err := svc.Create(ctx, CustomerForm{Name: "Ali", Contact: "+97150"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, customer.ID))
	require.False(t, repo.items[customer.ID].IsActive)

	require.ErrorIs(t, svc.Delete(ctx, customer.ID), shared.ErrNotFound)

	_, err = svc.Update(ctx, customer.ID, CustomerForm{Name: "Ali H", Contact: "+97150"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}
