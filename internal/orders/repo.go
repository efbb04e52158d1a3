package orders

import (
	"context"
	"errors"
	"sort"
	"sync"

	"pricep86-backend/internal/models"
	"pricep86-backend/internal/stock"

	"gorm.io/gorm"
)

// Repo persists the order workflow's own records. Stock numbers live in
// the ledger; this is only customer data plus status.
type Repo interface {
	Create(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error
	List(ctx context.Context, limit int) ([]models.Order, error)
}

type GormRepo struct {
	db *gorm.DB
}

func NewGormRepo(db *gorm.DB) *GormRepo { return &GormRepo{db: db} }

func (r *GormRepo) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *GormRepo) Get(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, stock.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return stock.ErrNotFound
	}
	return nil
}

func (r *GormRepo) List(ctx context.Context, limit int) ([]models.Order, error) {
	var list []models.Order
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&list).Error
	return list, err
}

// MemRepo backs local development without Postgres.
type MemRepo struct {
	mu     sync.RWMutex
	orders map[string]models.Order
}

func NewMemRepo() *MemRepo {
	return &MemRepo{orders: make(map[string]models.Order)}
}

func (r *MemRepo) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = *order
	return nil
}

func (r *MemRepo) Get(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, stock.ErrNotFound
	}
	return &order, nil
}

func (r *MemRepo) UpdateStatus(_ context.Context, id string, status models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return stock.ErrNotFound
	}
	order.Status = status
	r.orders[id] = order
	return nil
}

func (r *MemRepo) List(_ context.Context, limit int) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]models.Order, 0, len(r.orders))
	for _, o := range r.orders {
		list = append(list, o)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}
