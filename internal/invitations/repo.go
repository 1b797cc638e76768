package invitations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lendingloop/lendingloop-backend/pkg/db/models"
	"github.com/lendingloop/lendingloop-backend/pkg/enums"
)

// Repository defines persistence operations for loop invitations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, invitation *models.LoopInvitation) (*models.LoopInvitation, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.LoopInvitation, error)
	FindByToken(ctx context.Context, token string) (*models.LoopInvitation, error)
	ListPendingForUser(ctx context.Context, userID uuid.UUID, email string) ([]models.LoopInvitation, error)
	UpdateInvitation(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an invitations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, invitation *models.LoopInvitation) (*models.LoopInvitation, error) {
	if err := r.db.WithContext(ctx).Create(invitation).Error; err != nil {
		return nil, err
	}
	return invitation, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.LoopInvitation, error) {
	var invitation models.LoopInvitation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&invitation).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *repository) FindByToken(ctx context.Context, token string) (*models.LoopInvitation, error) {
	var invitation models.LoopInvitation
	err := r.db.WithContext(ctx).
		Where("invitation_token = ?", token).
		First(&invitation).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *repository) ListPendingForUser(ctx context.Context, userID uuid.UUID, email string) ([]models.LoopInvitation, error) {
	var invitations []models.LoopInvitation
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.InvitationStatusPending).
		Where("invited_user_id = ? OR lower(invited_email) = lower(?)", userID, email).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *repository) UpdateInvitation(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.LoopInvitation{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ExpirePendingBefore flips stale pending invitations to expired. The accept
// path still checks expires_at itself, so the sweep only tidies status for
// listings.
func (r *repository) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.LoopInvitation{}).
		Where("status = ? AND expires_at < ?", enums.InvitationStatusPending, cutoff).
		UpdateColumn("status", enums.InvitationStatusExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
