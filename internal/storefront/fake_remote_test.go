package storefront_test

import (
	"context"
	"errors"
	"sync"

	"github.com/tair/storefront/internal/storefront"
)

var errBackendDown = errors.New("backend down")

// fakeRemote is an in-memory RemoteStore. hook, when set, runs before every
// operation without the fake's lock held.
type fakeRemote struct {
	mu        sync.Mutex
	catalog   map[string]storefront.Product
	lines     map[string][]storefront.CartLine
	favorites map[string][]string
	calls     map[string]int
	fail      map[string]error
	failFav   map[string]error

	hook func(op string)
}

func newFakeRemote(products ...storefront.Product) *fakeRemote {
	f := &fakeRemote{
		catalog:   make(map[string]storefront.Product),
		lines:     make(map[string][]storefront.CartLine),
		favorites: make(map[string][]string),
		calls:     make(map[string]int),
		fail:      make(map[string]error),
		failFav:   make(map[string]error),
	}
	for _, p := range products {
		f.catalog[p.ID] = p
	}
	return f
}

func (f *fakeRemote) enter(op string) error {
	if f.hook != nil {
		f.hook(op)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.fail[op]
}

func (f *fakeRemote) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) setFail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

func (f *fakeRemote) quantity(userID string, key storefront.LineKey) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lines[userID] {
		if l.Key() == key {
			return l.Quantity
		}
	}
	return 0
}

func (f *fakeRemote) seedLine(userID string, key storefront.LineKey, quantity int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines[userID] = append(f.lines[userID], storefront.CartLine{
		ProductID: key.ProductID, Size: key.Size, Color: key.Color, Quantity: quantity,
	})
}

func (f *fakeRemote) UpsertCartLine(_ context.Context, userID string, key storefront.LineKey, delta int) error {
	if err := f.enter("UpsertCartLine"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := f.lines[userID]
	for i := range lines {
		if lines[i].Key() == key {
			lines[i].Quantity += delta
			return nil
		}
	}
	f.lines[userID] = append(lines, storefront.CartLine{
		ProductID: key.ProductID, Size: key.Size, Color: key.Color, Quantity: delta,
	})
	return nil
}

func (f *fakeRemote) SetCartLineQuantity(_ context.Context, userID string, key storefront.LineKey, quantity int) error {
	if err := f.enter("SetCartLineQuantity"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := f.lines[userID]
	for i := range lines {
		if lines[i].Key() == key {
			lines[i].Quantity = quantity
			return nil
		}
	}
	return nil
}

func (f *fakeRemote) DeleteCartLine(_ context.Context, userID string, key storefront.LineKey) error {
	if err := f.enter("DeleteCartLine"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := f.lines[userID]
	for i := range lines {
		if lines[i].Key() == key {
			f.lines[userID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeRemote) ClearCart(_ context.Context, userID string) error {
	if err := f.enter("ClearCart"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.lines, userID)
	return nil
}

// ListCartLines fills the denormalized fields from the catalog, the way the
// cart service does.
func (f *fakeRemote) ListCartLines(_ context.Context, userID string) ([]storefront.CartLine, error) {
	if err := f.enter("ListCartLines"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]storefront.CartLine, 0, len(f.lines[userID]))
	for _, l := range f.lines[userID] {
		p := f.catalog[l.ProductID]
		l.Name, l.Price, l.Images = p.Name, p.Price, append([]string(nil), p.Images...)
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeRemote) UpsertFavorite(_ context.Context, userID, productID string) error {
	if err := f.enter("UpsertFavorite"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFav[productID]; err != nil {
		return err
	}
	for _, id := range f.favorites[userID] {
		if id == productID {
			return nil
		}
	}
	f.favorites[userID] = append(f.favorites[userID], productID)
	return nil
}

func (f *fakeRemote) DeleteFavorite(_ context.Context, userID, productID string) error {
	if err := f.enter("DeleteFavorite"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := f.favorites[userID]
	for i, id := range ids {
		if id == productID {
			f.favorites[userID] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeRemote) ListFavorites(_ context.Context, userID string) ([]storefront.Product, error) {
	if err := f.enter("ListFavorites"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]storefront.Product, 0, len(f.favorites[userID]))
	for _, id := range f.favorites[userID] {
		out = append(out, f.catalog[id])
	}
	return out, nil
}

// failingLocal rejects every save
type failingLocal struct{}

func (failingLocal) Load(context.Context) (storefront.State, error) {
	return storefront.State{}, errBackendDown
}

func (failingLocal) Save(context.Context, storefront.State) error {
	return errBackendDown
}
