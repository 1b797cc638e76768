package invitations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lendingloop/lendingloop-backend/internal/notifications"
	"github.com/lendingloop/lendingloop-backend/pkg/authz"
	"github.com/lendingloop/lendingloop-backend/pkg/config"
	dbpkg "github.com/lendingloop/lendingloop-backend/pkg/db"
	"github.com/lendingloop/lendingloop-backend/pkg/db/models"
	"github.com/lendingloop/lendingloop-backend/pkg/enums"
	pkgerrors "github.com/lendingloop/lendingloop-backend/pkg/errors"
	"github.com/lendingloop/lendingloop-backend/pkg/logger"
	"github.com/lendingloop/lendingloop-backend/pkg/outbox"
	"github.com/lendingloop/lendingloop-backend/pkg/outbox/payloads"
	"github.com/lendingloop/lendingloop-backend/pkg/security"
)

// openInvitationConstraint is the partial unique index backing the
// one-pending-invitation-per-(loop, email) invariant at the storage level.
const openInvitationConstraint = "ux_loop_invitations_open"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, input notifications.CreateInput) error
}

type loopStore interface {
	FindByID(ctx context.Context, loopID uuid.UUID) (*models.Loop, error)
	AddMember(ctx context.Context, tx *gorm.DB, loopID, userID uuid.UUID) (bool, error)
}

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type invitationMailer interface {
	SendInvitationEmail(ctx context.Context, to, inviterName, loopName, token string) error
}

// Service drives the loop invitation lifecycle.
type Service interface {
	CreateEmailInvitation(ctx context.Context, input CreateEmailInput) (*InvitationDTO, error)
	CreateUserInvitation(ctx context.Context, input CreateUserInput) (*InvitationDTO, error)
	AcceptByToken(ctx context.Context, token string, userID uuid.UUID) (*InvitationDTO, error)
	AcceptByUser(ctx context.Context, invitationID, userID uuid.UUID) (*InvitationDTO, error)
	Decline(ctx context.Context, invitationID, userID uuid.UUID) error
	ListPending(ctx context.Context, userID uuid.UUID) ([]InvitationDTO, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	notes  notifier
	loops  loopStore
	users  userStore
	mail   invitationMailer
	cfg    config.InvitationConfig
	logg   *logger.Logger
}

// ServiceParams bundles the invitation service dependencies.
type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Outbox outboxPublisher
	Notes  notifier
	Loops  loopStore
	Users  userStore
	Mail   invitationMailer
	Config config.InvitationConfig
	Logger *logger.Logger
}

// NewService builds an invitations service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("invitations repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Notes == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Loops == nil {
		return nil, fmt.Errorf("loop store required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user store required")
	}
	if params.Mail == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if params.Config.TokenTTL <= 0 {
		return nil, fmt.Errorf("invitation token ttl must be positive")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		outbox: params.Outbox,
		notes:  params.Notes,
		loops:  params.Loops,
		users:  params.Users,
		mail:   params.Mail,
		cfg:    params.Config,
		logg:   params.Logger,
	}, nil
}

func (s *service) CreateEmailInvitation(ctx context.Context, input CreateEmailInput) (*InvitationDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}

	loop, inviter, err := s.prepareInvite(ctx, input.LoopID, input.InviterUserID)
	if err != nil {
		return nil, err
	}

	var invitedUserID *uuid.UUID
	invited, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up invited email")
	}
	if invited != nil {
		if authz.IsLoopMember(loop, invited.ID) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "user is already a loop member")
		}
		invitedUserID = &invited.ID
	}

	created, token, err := s.persistInvitation(ctx, loop, inviter.ID, email, invitedUserID)
	if err != nil {
		return nil, err
	}

	if err := s.mail.SendInvitationEmail(ctx, email, inviterName(inviter), loop.Name, token); err != nil {
		logCtx := s.logg.WithLoopID(ctx, loop.ID.String())
		s.logg.Error(logCtx, "send invitation email", err)
	}
	if invitedUserID != nil {
		s.notifyInvited(ctx, *invitedUserID, created, inviter)
	}

	dto := FromModel(created)
	dto.Token = token
	return &dto, nil
}

func (s *service) CreateUserInvitation(ctx context.Context, input CreateUserInput) (*InvitationDTO, error) {
	if input.InvitedUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invited user id required")
	}

	loop, inviter, err := s.prepareInvite(ctx, input.LoopID, input.InviterUserID)
	if err != nil {
		return nil, err
	}
	if authz.IsLoopMember(loop, input.InvitedUserID) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user is already a loop member")
	}

	invited, err := s.users.FindByID(ctx, input.InvitedUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invited user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invited user")
	}

	created, token, err := s.persistInvitation(ctx, loop, inviter.ID, strings.ToLower(invited.Email), &invited.ID)
	if err != nil {
		return nil, err
	}

	s.notifyInvited(ctx, invited.ID, created, inviter)

	dto := FromModel(created)
	dto.Token = token
	return &dto, nil
}

func (s *service) AcceptByToken(ctx context.Context, token string, userID uuid.UUID) (*InvitationDTO, error) {
	if strings.TrimSpace(token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invitation token required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	invitation, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Unknown tokens read the same as consumed or expired ones.
			return nil, pkgerrors.New(pkgerrors.CodeGone, "invitation link is no longer valid")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invitation")
	}
	return s.accept(ctx, invitation, userID)
}

func (s *service) AcceptByUser(ctx context.Context, invitationID, userID uuid.UUID) (*InvitationDTO, error) {
	invitation, err := s.loadAddressed(ctx, invitationID, userID)
	if err != nil {
		return nil, err
	}
	return s.accept(ctx, invitation, userID)
}

func (s *service) Decline(ctx context.Context, invitationID, userID uuid.UUID) error {
	invitation, err := s.loadAddressed(ctx, invitationID, userID)
	if err != nil {
		return err
	}
	if invitation.Status != enums.InvitationStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "invitation is no longer pending")
	}

	err = s.repo.UpdateInvitation(ctx, invitation.ID, map[string]any{
		"status": enums.InvitationStatusDeclined,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decline invitation")
	}
	return nil
}

func (s *service) ListPending(ctx context.Context, userID uuid.UUID) ([]InvitationDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	rows, err := s.repo.ListPendingForUser(ctx, userID, user.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invitations")
	}

	now := time.Now().UTC()
	dtos := make([]InvitationDTO, 0, len(rows))
	for i := range rows {
		if rows[i].IsExpired(now) {
			continue
		}
		dtos = append(dtos, FromModel(&rows[i]))
	}
	return dtos, nil
}

func (s *service) accept(ctx context.Context, invitation *models.LoopInvitation, userID uuid.UUID) (*InvitationDTO, error) {
	if invitation.Status != enums.InvitationStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invitation is no longer pending")
	}
	now := time.Now().UTC()
	if invitation.IsExpired(now) {
		if err := s.repo.UpdateInvitation(ctx, invitation.ID, map[string]any{
			"status": enums.InvitationStatusExpired,
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire invitation")
		}
		return nil, pkgerrors.New(pkgerrors.CodeGone, "invitation has expired")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		added, err := s.loops.AddMember(ctx, tx, invitation.LoopID, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add loop member")
		}
		if !added {
			return pkgerrors.New(pkgerrors.CodeConflict, "user is already a loop member")
		}

		if err := s.repo.WithTx(tx).UpdateInvitation(ctx, invitation.ID, map[string]any{
			"status":          enums.InvitationStatusAccepted,
			"accepted_at":     now,
			"invited_user_id": userID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept invitation")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLoopMemberJoined,
			AggregateType: enums.AggregateLoop,
			AggregateID:   invitation.LoopID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.LoopMemberJoinedEvent{
				LoopID:       invitation.LoopID,
				UserID:       userID,
				InvitationID: &invitation.ID,
				JoinedAt:     now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	invitation.Status = enums.InvitationStatusAccepted
	invitation.AcceptedAt = &now
	invitation.InvitedUserID = &userID
	dto := FromModel(invitation)
	return &dto, nil
}

// loadAddressed loads an invitation addressed to the given user. Other users
// get not found so invitation ids stay unguessable.
func (s *service) loadAddressed(ctx context.Context, invitationID, userID uuid.UUID) (*models.LoopInvitation, error) {
	if invitationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invitation id required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	invitation, err := s.repo.FindByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invitation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invitation")
	}
	if invitation.InvitedUserID == nil || *invitation.InvitedUserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invitation not found")
	}
	return invitation, nil
}

func (s *service) prepareInvite(ctx context.Context, loopID, inviterID uuid.UUID) (*models.Loop, *models.User, error) {
	if loopID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "loop id required")
	}
	if inviterID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	loop, err := s.loops.FindByID(ctx, loopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "loop not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loop")
	}
	if loop.IsArchived {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "archived loops cannot be joined")
	}
	if err := authz.EnsureLoopMember(loop, inviterID); err != nil {
		return nil, nil, err
	}

	inviter, err := s.users.FindByID(ctx, inviterID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inviter")
	}
	return loop, inviter, nil
}

func (s *service) persistInvitation(ctx context.Context, loop *models.Loop, inviterID uuid.UUID, email string, invitedUserID *uuid.UUID) (*models.LoopInvitation, string, error) {
	token, err := security.GenerateToken(security.InvitationTokenBytes)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate invitation token")
	}

	invitation := &models.LoopInvitation{
		LoopID:          loop.ID,
		InvitedByUserID: inviterID,
		InvitedEmail:    email,
		InvitedUserID:   invitedUserID,
		InvitationToken: token,
		Status:          enums.InvitationStatusPending,
		ExpiresAt:       time.Now().UTC().Add(s.cfg.TokenTTL),
	}
	created, err := s.repo.Create(ctx, invitation)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, openInvitationConstraint) {
			return nil, "", pkgerrors.New(pkgerrors.CodeConflict, "a pending invitation already exists for this email")
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invitation")
	}
	return created, token, nil
}

func (s *service) notifyInvited(ctx context.Context, userID uuid.UUID, invitation *models.LoopInvitation, inviter *models.User) {
	err := s.notes.Notify(ctx, nil, notifications.CreateInput{
		UserID:        userID,
		Type:          enums.NotificationTypeLoopInvitation,
		Message:       fmt.Sprintf("%s invited you to join a loop", inviterName(inviter)),
		RelatedUserID: &inviter.ID,
	})
	if err != nil {
		logCtx := s.logg.WithUserID(ctx, userID.String())
		s.logg.Error(logCtx, "notification write failed", err)
	}
}

func inviterName(u *models.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}
