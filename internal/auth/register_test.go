package auth

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lendingloop/lendingloop-backend/pkg/config"
	"github.com/lendingloop/lendingloop-backend/pkg/db"
	"github.com/lendingloop/lendingloop-backend/pkg/logger"
)

type recordingMailer struct {
	verifications []string
}

func (m *recordingMailer) SendInvitationEmail(ctx context.Context, to, inviterName, loopName, token string) error {
	return nil
}

func (m *recordingMailer) SendVerificationEmail(ctx context.Context, to, firstName, token string) error {
	m.verifications = append(m.verifications, to)
	return nil
}

func setupRegisterTestDB(t *testing.T) *db.Client {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:registersvc?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	usersTable := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY NOT NULL DEFAULT (lower(hex(randomblob(16)))),
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  address TEXT,
  email_verified INTEGER NOT NULL DEFAULT 0,
  verification_token TEXT,
  verification_expires_at DATETIME,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(usersTable).Error)
	t.Cleanup(func() {
		conn.Exec("DELETE FROM users")
	})

	return db.NewWithConn(conn)
}

func newRegisterService(t *testing.T, client *db.Client, mail *recordingMailer) RegisterService {
	t.Helper()
	svc, err := NewRegisterService(RegisterServiceParams{
		DB:                 client,
		Mailer:             mail,
		Logger:             logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		VerificationConfig: config.VerificationConfig{TokenTTL: 24 * time.Hour},
	})
	require.NoError(t, err)
	return svc
}

func TestRegisterCreatesUserAndSendsVerification(t *testing.T) {
	client := setupRegisterTestDB(t)
	mail := &recordingMailer{}
	svc := newRegisterService(t, client, mail)

	err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Dana",
		LastName:  "Reyes",
		Email:     "Dana@Example.com",
		Password:  "correct horse battery",
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, client.DB().Table("users").Where("email = ?", "dana@example.com").Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, []string{"dana@example.com"}, mail.verifications)
}

func TestRegisterDuplicateEmailIsSuccessShaped(t *testing.T) {
	client := setupRegisterTestDB(t)
	mail := &recordingMailer{}
	svc := newRegisterService(t, client, mail)

	req := RegisterRequest{
		FirstName: "Dana",
		LastName:  "Reyes",
		Email:     "dup@example.com",
		Password:  "correct horse battery",
	}
	require.NoError(t, svc.Register(context.Background(), req))

	// A second attempt, even with different casing, must look identical to
	// the first from the caller's perspective.
	req.Email = "DUP@example.com"
	require.NoError(t, svc.Register(context.Background(), req))

	var count int64
	require.NoError(t, client.DB().Table("users").Where("lower(email) = ?", "dup@example.com").Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Len(t, mail.verifications, 1)
}
