package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tair/storefront/internal/catalog/domain"
)

// MemoryRepository is an in-process catalog used by tests and local runs
// without a database.
type MemoryRepository struct {
	mu           sync.Mutex
	products     map[string]domain.Product
	fabrics      map[uint]domain.Fabric
	nextFabricID uint
	now          func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		products: make(map[string]domain.Product),
		fabrics:  make(map[uint]domain.Fabric),
		now:      time.Now,
	}
}

// tick returns a strictly increasing timestamp so newest-first ordering is stable.
func (m *MemoryRepository) tick() time.Time {
	t := m.now()
	m.now = func() time.Time { return t.Add(time.Millisecond) }
	return t
}

func (m *MemoryRepository) Create(_ context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.tick()
	product.CreatedAt, product.UpdatedAt = now, now
	m.products[product.ID] = *product
	return nil
}

func (m *MemoryRepository) FindByID(_ context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *MemoryRepository) List(_ context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []domain.Product
	for _, p := range m.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if !filter.IncludeInactive && !p.IsActive {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (m *MemoryRepository) Update(_ context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[product.ID]; !ok {
		return domain.ErrNotFound
	}
	product.UpdatedAt = m.tick()
	m.products[product.ID] = *product
	return nil
}

func (m *MemoryRepository) Save(_ context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.tick()
	if existing, ok := m.products[product.ID]; ok {
		product.CreatedAt = existing.CreatedAt
	} else {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	m.products[product.ID] = *product
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *MemoryRepository) CategoryStats(_ context.Context) ([]domain.CategoryStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byCategory := make(map[domain.Category]*domain.CategoryStats)
	for _, p := range m.products {
		if !p.IsActive {
			continue
		}
		s, ok := byCategory[p.Category]
		if !ok {
			s = &domain.CategoryStats{Category: p.Category, MinPriceCents: p.PriceCents, MaxPriceCents: p.PriceCents}
			byCategory[p.Category] = s
		}
		s.ProductCount++
		if p.PriceCents < s.MinPriceCents {
			s.MinPriceCents = p.PriceCents
		}
		if p.PriceCents > s.MaxPriceCents {
			s.MaxPriceCents = p.PriceCents
		}
		if p.OnSale() {
			s.OnSaleCount++
		}
	}

	out := make([]domain.CategoryStats, 0, len(byCategory))
	for _, s := range byCategory {
		out = append(out, *s)
	}
	return out, nil
}

// Fabrics exposes the fabric half of the memory repository.
func (m *MemoryRepository) Fabrics() domain.FabricRepository {
	return memoryFabrics{m}
}

type memoryFabrics struct {
	m *MemoryRepository
}

func (f memoryFabrics) Create(_ context.Context, fabric *domain.Fabric) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()

	f.m.nextFabricID++
	fabric.ID = f.m.nextFabricID
	now := f.m.tick()
	fabric.CreatedAt, fabric.UpdatedAt = now, now
	f.m.fabrics[fabric.ID] = *fabric
	return nil
}

func (f memoryFabrics) FindByID(_ context.Context, id uint) (*domain.Fabric, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()

	fabric, ok := f.m.fabrics[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &fabric, nil
}

func (f memoryFabrics) FindByName(_ context.Context, name string) (*domain.Fabric, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()

	for _, fabric := range f.m.fabrics {
		if strings.EqualFold(fabric.Name, name) {
			return &fabric, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f memoryFabrics) List(_ context.Context) ([]domain.Fabric, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()

	out := make([]domain.Fabric, 0, len(f.m.fabrics))
	for _, fabric := range f.m.fabrics {
		out = append(out, fabric)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f memoryFabrics) Update(_ context.Context, fabric *domain.Fabric) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()

	if _, ok := f.m.fabrics[fabric.ID]; !ok {
		return domain.ErrNotFound
	}
	fabric.UpdatedAt = f.m.tick()
	f.m.fabrics[fabric.ID] = *fabric
	return nil
}

func (f memoryFabrics) Delete(_ context.Context, id uint) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()

	if _, ok := f.m.fabrics[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.m.fabrics, id)
	for pid, p := range f.m.products {
		if p.FabricID != nil && *p.FabricID == id {
			p.FabricID = nil
			f.m.products[pid] = p
		}
	}
	return nil
}

var (
	_ domain.ProductRepository = (*MemoryRepository)(nil)
	_ domain.FabricRepository  = memoryFabrics{}
)
