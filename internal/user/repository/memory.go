package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tair/storefront/internal/user/domain"
)

// MemoryRepository keeps users in process memory
type MemoryRepository struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]domain.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[uint]domain.User)}
}

func (m *MemoryRepository) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	user.ID = m.nextID
	// ids order creation even when the clock does not move
	user.CreatedAt = time.Now().Add(time.Duration(m.nextID) * time.Microsecond)
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryRepository) find(match func(domain.User) bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MemoryRepository) FindByID(_ context.Context, id uint) (*domain.User, error) {
	return m.find(func(u domain.User) bool { return u.ID == id })
}

func (m *MemoryRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return m.find(func(u domain.User) bool { return strings.EqualFold(u.Username, username) })
}

func (m *MemoryRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.find(func(u domain.User) bool { return u.Email == email })
}

func (m *MemoryRepository) List(_ context.Context, role string, limit, offset int) ([]domain.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []domain.User
	for _, u := range m.users {
		if role == "" || u.Role == role {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *MemoryRepository) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; !ok {
		return domain.ErrNotFound
	}
	user.UpdatedAt = time.Now()
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *MemoryRepository) Stats(_ context.Context) (*domain.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s domain.UserStats
	for _, u := range m.users {
		s.TotalUsers++
		switch u.Role {
		case domain.RoleAdmin:
			s.AdminCount++
		case domain.RoleUser:
			s.UserCount++
		}
		if u.IsActive {
			s.ActiveUsers++
		}
	}
	return &s, nil
}
