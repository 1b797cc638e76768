package items

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lendingloop/lendingloop-backend/pkg/db/models"
)

// Repository defines persistence operations for shared items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.SharedItem) (*models.SharedItem, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.SharedItem, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.SharedItem, error)
	ListByOwners(ctx context.Context, ownerIDs []uuid.UUID) ([]models.SharedItem, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an items repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.SharedItem) (*models.SharedItem, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SharedItem, error) {
	var item models.SharedItem
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.SharedItem, error) {
	var items []models.SharedItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListByOwners(ctx context.Context, ownerIDs []uuid.UUID) ([]models.SharedItem, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	var items []models.SharedItem
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", ownerIDs).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.SharedItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	return r.db.WithContext(ctx).
		Model(&models.SharedItem{}).
		Where("id = ?", id).
		UpdateColumn("is_available", available).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.SharedItem{}).Error
}

// TxStore adapts the repository to the transactional item accessors the
// request lifecycle needs.
type TxStore struct {
	repo Repository
}

// NewTxStore wraps a repository for use inside other services' transactions.
func NewTxStore(repo Repository) *TxStore {
	return &TxStore{repo: repo}
}

func (s *TxStore) FindByID(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (*models.SharedItem, error) {
	return s.repo.WithTx(tx).FindByID(ctx, itemID)
}

func (s *TxStore) SetAvailability(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, available bool) error {
	return s.repo.WithTx(tx).SetAvailability(ctx, itemID, available)
}
