package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lendingloop/lendingloop-backend/internal/users"
	"github.com/lendingloop/lendingloop-backend/pkg/config"
	"github.com/lendingloop/lendingloop-backend/pkg/db"
	pkgerrors "github.com/lendingloop/lendingloop-backend/pkg/errors"
	"github.com/lendingloop/lendingloop-backend/pkg/logger"
	"github.com/lendingloop/lendingloop-backend/pkg/mailer"
	"github.com/lendingloop/lendingloop-backend/pkg/security"
)

// RegisterService handles account creation and email verification kickoff.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB                 *db.Client
	Mailer             mailer.Sender
	Logger             *logger.Logger
	PasswordConfig     config.PasswordConfig
	VerificationConfig config.VerificationConfig
}

type registerService struct {
	db              *db.Client
	mail            mailer.Sender
	logg            *logger.Logger
	passwordCfg     config.PasswordConfig
	verificationCfg config.VerificationConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &registerService{
		db:              params.DB,
		mail:            params.Mailer,
		logg:            params.Logger,
		passwordCfg:     params.PasswordConfig,
		verificationCfg: params.VerificationConfig,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	token, err := security.GenerateToken(security.InvitationTokenBytes)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification token")
	}
	expiresAt := time.Now().UTC().Add(s.verificationCfg.TokenTTL)

	var created *users.UserDTO
	var duplicate bool
	txErr := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			// Success-shaped so callers cannot tell which emails
			// already have accounts.
			duplicate = true
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:                 email,
			PasswordHash:          passwordHash,
			FirstName:             strings.TrimSpace(req.FirstName),
			LastName:              strings.TrimSpace(req.LastName),
			Address:               req.Address,
			VerificationToken:     &token,
			VerificationExpiresAt: &expiresAt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		created = users.FromModel(user)
		return nil
	})
	if txErr != nil {
		return txErr
	}
	if duplicate {
		if s.logg != nil {
			s.logg.Info(ctx, "registration attempt for an existing email")
		}
		return nil
	}

	// Delivery is best effort; the user can request a resend.
	if s.mail != nil && created != nil {
		if err := s.mail.SendVerificationEmail(ctx, created.Email, created.FirstName, token); err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithUserID(ctx, created.ID.String()), "send verification email", err)
		}
	}
	return nil
}
