package loops

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lendingloop/lendingloop-backend/pkg/db/models"
)

// Repository defines persistence operations for loops and their history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, loop *models.Loop) (*models.Loop, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Loop, error)
	ListByMember(ctx context.Context, userID uuid.UUID) ([]models.Loop, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	AddMember(ctx context.Context, loopID, userID uuid.UUID) (bool, error)
	RemoveMember(ctx context.Context, loopID, userID uuid.UUID) error
	SetOwner(ctx context.Context, loopID, newOwnerID uuid.UUID) error
	CreateOwnershipTransfer(ctx context.Context, transfer *models.LoopOwnershipTransfer) error
	ListOwnershipTransfers(ctx context.Context, loopID uuid.UUID) ([]models.LoopOwnershipTransfer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a loops repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, loop *models.Loop) (*models.Loop, error) {
	if err := r.db.WithContext(ctx).Create(loop).Error; err != nil {
		return nil, err
	}
	return loop, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Loop, error) {
	var loop models.Loop
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&loop).Error
	if err != nil {
		return nil, err
	}
	return &loop, nil
}

func (r *repository) ListByMember(ctx context.Context, userID uuid.UUID) ([]models.Loop, error) {
	var loops []models.Loop
	err := r.db.WithContext(ctx).
		Where("member_ids @> ARRAY[?]::uuid[]", userID).
		Order("created_at ASC").
		Find(&loops).Error
	if err != nil {
		return nil, err
	}
	return loops, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Loop{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// AddMember appends the user to member_ids unless already present. The guard
// lives in the WHERE clause so concurrent accepts cannot double-add.
func (r *repository) AddMember(ctx context.Context, loopID, userID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE loops
		SET member_ids = array_append(member_ids, ?),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND NOT (member_ids @> ARRAY[?]::uuid[])
	`, userID, loopID, userID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) RemoveMember(ctx context.Context, loopID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE loops
		SET member_ids = array_remove(member_ids, ?),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, userID, loopID).Error
}

func (r *repository) SetOwner(ctx context.Context, loopID, newOwnerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Loop{}).
		Where("id = ?", loopID).
		UpdateColumn("creator_id", newOwnerID).Error
}

func (r *repository) CreateOwnershipTransfer(ctx context.Context, transfer *models.LoopOwnershipTransfer) error {
	return r.db.WithContext(ctx).Create(transfer).Error
}

func (r *repository) ListOwnershipTransfers(ctx context.Context, loopID uuid.UUID) ([]models.LoopOwnershipTransfer, error) {
	var transfers []models.LoopOwnershipTransfer
	err := r.db.WithContext(ctx).
		Where("loop_id = ?", loopID).
		Order("transferred_at ASC").
		Find(&transfers).Error
	if err != nil {
		return nil, err
	}
	return transfers, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Loop{}).Error
}

// TxStore adapts the repository to the transactional loop accessors other
// services need when joining membership changes to their own writes.
type TxStore struct {
	repo Repository
}

// NewTxStore wraps a repository for use inside other services' transactions.
func NewTxStore(repo Repository) *TxStore {
	return &TxStore{repo: repo}
}

func (s *TxStore) FindByID(ctx context.Context, loopID uuid.UUID) (*models.Loop, error) {
	return s.repo.FindByID(ctx, loopID)
}

func (s *TxStore) AddMember(ctx context.Context, tx *gorm.DB, loopID, userID uuid.UUID) (bool, error) {
	return s.repo.WithTx(tx).AddMember(ctx, loopID, userID)
}
