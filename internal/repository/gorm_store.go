package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TurtleDesk/internal/domain/models"
	domrepo "TurtleDesk/internal/domain/repository"
	"TurtleDesk/pkg/database"

	"gorm.io/gorm"
)

// GormStore implements Store on any gorm dialect.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&models.Stock{}, &models.AlertHistory{})
}

func (s *GormStore) Stocks() domrepo.StockRepository { return &stockRepo{db: s.db} }

func (s *GormStore) Alerts() domrepo.AlertRepository { return &alertRepo{db: s.db} }

func (s *GormStore) Transaction(ctx context.Context, fn func(domrepo.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) Ping(ctx context.Context) error {
	return database.Ping(ctx, s.db)
}

type stockRepo struct {
	db *gorm.DB
}

func (r *stockRepo) Upsert(ctx context.Context, symbol string, price float64, at time.Time) (*models.Stock, error) {
	var st models.Stock
	err := r.db.WithContext(ctx).Where("symbol = ?", symbol).First(&st).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		st = models.Stock{Symbol: symbol, Name: symbol, CurrentPrice: price, LastUpdated: at, IsActive: true}
		if err := r.db.WithContext(ctx).Create(&st).Error; err != nil {
			return nil, fmt.Errorf("create stock %s: %w", symbol, err)
		}
		return &st, nil
	case err != nil:
		return nil, fmt.Errorf("find stock %s: %w", symbol, err)
	}

	err = r.db.WithContext(ctx).Model(&st).Updates(map[string]interface{}{
		"current_price": price,
		"last_updated":  at,
		"is_active":     true,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("update stock %s: %w", symbol, err)
	}
	return &st, nil
}

func (r *stockRepo) Get(ctx context.Context, symbol string) (*models.Stock, error) {
	var st models.Stock
	err := r.db.WithContext(ctx).Where("symbol = ?", symbol).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrStockNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get stock %s: %w", symbol, err)
	}
	return &st, nil
}

func (r *stockRepo) List(ctx context.Context, activeOnly bool) ([]models.Stock, error) {
	q := r.db.WithContext(ctx).Model(&models.Stock{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	out := make([]models.Stock, 0)
	if err := q.Order("symbol ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list stocks: %w", err)
	}
	return out, nil
}

func (r *stockRepo) Deactivate(ctx context.Context, symbol string) (*models.Stock, error) {
	st, err := r.Get(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(st).Update("is_active", false).Error; err != nil {
		return nil, fmt.Errorf("deactivate stock %s: %w", symbol, err)
	}
	return st, nil
}

func (r *stockRepo) Count(ctx context.Context, activeOnly bool) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Stock{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count stocks: %w", err)
	}
	return n, nil
}

type alertRepo struct {
	db *gorm.DB
}

func (r *alertRepo) Create(ctx context.Context, a *models.AlertHistory) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

func (r *alertRepo) Recent(ctx context.Context, symbol string, limit int) ([]models.AlertHistory, error) {
	q := r.db.WithContext(ctx).Model(&models.AlertHistory{})
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	out := make([]models.AlertHistory, 0, limit)
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("recent alerts: %w", err)
	}
	return out, nil
}

func (r *alertRepo) MarkSent(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.AlertHistory{}).Where("id = ?", id).Update("sent", true)
	if res.Error != nil {
		return fmt.Errorf("mark alert %d sent: %w", id, res.Error)
	}
	return nil
}

func (r *alertRepo) CountBySignal(ctx context.Context) (map[models.Signal]int64, error) {
	var rows []struct {
		SignalType string
		N          int64
	}
	err := r.db.WithContext(ctx).Model(&models.AlertHistory{}).
		Select("signal_type, COUNT(*) AS n").
		Group("signal_type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count by signal: %w", err)
	}
	out := make(map[models.Signal]int64, len(rows))
	for _, row := range rows {
		out[models.Signal(row.SignalType)] = row.N
	}
	return out, nil
}

func (r *alertRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.AlertHistory{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return n, nil
}
