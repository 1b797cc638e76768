package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/lendingloop/lendingloop-backend/pkg/logger"
)

type InvitationExpiryJobParams struct {
	Logger     *logger.Logger
	Repository invitationExpiryRepo
}

type invitationExpiryRepo interface {
	ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewInvitationExpiryJob builds the sweep that flips stale pending
// invitations to expired. Accept paths check expiry themselves, so this
// only keeps listings honest.
func NewInvitationExpiryJob(params InvitationExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("invitations repository required")
	}
	return &invitationExpiryJob{
		logg: params.Logger,
		repo: params.Repository,
		now:  time.Now,
	}, nil
}

type invitationExpiryJob struct {
	logg *logger.Logger
	repo invitationExpiryRepo
	now  func() time.Time
}

func (j *invitationExpiryJob) Name() string { return "invitation-expiry" }

func (j *invitationExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	expired, err := j.repo.ExpirePendingBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("invitation expiry: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_expired": expired,
	})
	j.logg.Info(logCtx, "invitation expiry sweep complete")
	return nil
}
