package repository

import (
	"context"
	"sync"
	"time"

	"github.com/tair/storefront/internal/cart/domain"
	"github.com/tair/storefront/internal/storefront"
)

// MemoryRepository keeps carts and favorites in process memory. It
// implements both repository contracts and backs the usecase tests.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID uint
	lines  []domain.CartLine
	favs   []domain.Favorite
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) find(userID string, key storefront.LineKey) int {
	for i, l := range m.lines {
		if l.UserID == userID && l.Key() == key {
			return i
		}
	}
	return -1
}

func (m *MemoryRepository) UpsertLine(_ context.Context, line *domain.CartLine, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if i := m.find(line.UserID, line.Key()); i >= 0 {
		existing := &m.lines[i]
		existing.Quantity += delta
		existing.ProductName = line.ProductName
		existing.UnitPriceCents = line.UnitPriceCents
		existing.Images = line.Images
		existing.UpdatedAt = now
		*line = *existing
		return nil
	}

	m.nextID++
	line.ID = m.nextID
	line.Quantity = delta
	line.CreatedAt, line.UpdatedAt = now, now
	m.lines = append(m.lines, *line)
	return nil
}

func (m *MemoryRepository) SetQuantity(_ context.Context, userID string, key storefront.LineKey, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.find(userID, key)
	if i < 0 {
		return domain.ErrNotFound
	}
	m.lines[i].Quantity = quantity
	return nil
}

func (m *MemoryRepository) DeleteLine(_ context.Context, userID string, key storefront.LineKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.find(userID, key)
	if i < 0 {
		return domain.ErrNotFound
	}
	m.lines = append(m.lines[:i], m.lines[i+1:]...)
	return nil
}

func (m *MemoryRepository) Clear(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.lines[:0]
	var n int64
	for _, l := range m.lines {
		if l.UserID == userID {
			n++
			continue
		}
		kept = append(kept, l)
	}
	m.lines = kept
	return n, nil
}

func (m *MemoryRepository) ListLines(_ context.Context, userID string) ([]domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.CartLine
	for _, l := range m.lines {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *MemoryRepository) UpdateSnapshot(_ context.Context, line *domain.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.lines {
		if m.lines[i].ID == line.ID {
			m.lines[i].ProductName = line.ProductName
			m.lines[i].UnitPriceCents = line.UnitPriceCents
			m.lines[i].Images = line.Images
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MemoryRepository) Add(_ context.Context, userID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range m.favs {
		if f.UserID == userID && f.ProductID == productID {
			return nil
		}
	}
	m.nextID++
	m.favs = append(m.favs, domain.Favorite{ID: m.nextID, UserID: userID, ProductID: productID, CreatedAt: time.Now()})
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, userID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, f := range m.favs {
		if f.UserID == userID && f.ProductID == productID {
			m.favs = append(m.favs[:i], m.favs[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MemoryRepository) List(_ context.Context, userID string) ([]domain.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Favorite
	for _, f := range m.favs {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

var (
	_ domain.CartRepository     = (*MemoryRepository)(nil)
	_ domain.FavoriteRepository = (*MemoryRepository)(nil)
)
