package repository

import (
	"context"
	"sync"
	"time"

	"github.com/tair/storefront/internal/order/domain"
)

// MemoryRepository keeps orders in process memory, newest last.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID uint
	orders []domain.Order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) index(number string) int {
	for i := range m.orders {
		if m.orders[i].OrderNumber == number {
			return i
		}
	}
	return -1
}

func (m *MemoryRepository) Create(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	order.ID = m.nextID
	now := time.Now()
	order.CreatedAt, order.UpdatedAt = now, now
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	m.orders = append(m.orders, clone(*order))
	return nil
}

func (m *MemoryRepository) FindByNumber(_ context.Context, number string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(number)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	o := clone(m.orders[i])
	return &o, nil
}

// newestFirst walks orders from the most recent one.
func (m *MemoryRepository) newestFirst(keep func(domain.Order) bool) []domain.Order {
	var out []domain.Order
	for i := len(m.orders) - 1; i >= 0; i-- {
		if keep(m.orders[i]) {
			out = append(out, clone(m.orders[i]))
		}
	}
	return out
}

func page(orders []domain.Order, limit, offset int) []domain.Order {
	if offset >= len(orders) {
		return nil
	}
	orders = orders[offset:]
	if limit > 0 && limit < len(orders) {
		orders = orders[:limit]
	}
	return orders
}

func (m *MemoryRepository) ListByUser(_ context.Context, userID string, limit, offset int) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.newestFirst(func(o domain.Order) bool { return o.UserID == userID })
	return page(all, limit, offset), nil
}

func (m *MemoryRepository) List(_ context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.newestFirst(func(o domain.Order) bool { return filter.Status == "" || o.Status == filter.Status })
	return page(all, filter.Limit, filter.Offset), int64(len(all)), nil
}

func (m *MemoryRepository) UpdatePayment(_ context.Context, number, intentID, clientToken string, status domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(number)
	if i < 0 {
		return domain.ErrNotFound
	}
	m.orders[i].PaymentIntentID = intentID
	m.orders[i].PaymentClientToken = clientToken
	m.orders[i].Status = status
	m.orders[i].UpdatedAt = time.Now()
	return nil
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, number string, status domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(number)
	if i < 0 {
		return domain.ErrNotFound
	}
	m.orders[i].Status = status
	m.orders[i].UpdatedAt = time.Now()
	return nil
}

func clone(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}
