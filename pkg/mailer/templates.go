package mailer

import (
	"context"
	"fmt"
)

// Sender is the delivery surface consumed by services. Failures are logged by
// callers and never fail the originating request.
type Sender interface {
	SendInvitationEmail(ctx context.Context, to, inviterName, loopName, token string) error
	SendVerificationEmail(ctx context.Context, to, firstName, token string) error
}

// SendInvitationEmail delivers a loop invitation with its redemption token.
func (c *Client) SendInvitationEmail(ctx context.Context, to, inviterName, loopName, token string) error {
	subject := fmt.Sprintf("%s invited you to join %s on LendingLoop", inviterName, loopName)
	plain := fmt.Sprintf(
		"%s invited you to join the loop %q.\n\nUse this invitation code to join: %s\n\nThe invitation expires in 24 hours.",
		inviterName, loopName, token,
	)
	return c.Send(ctx, Message{To: to, Subject: subject, PlainText: plain})
}

// SendVerificationEmail delivers the email-verification token for a new account.
func (c *Client) SendVerificationEmail(ctx context.Context, to, firstName, token string) error {
	subject := "Verify your LendingLoop email"
	plain := fmt.Sprintf(
		"Hi %s,\n\nUse this code to verify your email address: %s\n\nThe code expires in 24 hours.",
		firstName, token,
	)
	return c.Send(ctx, Message{To: to, Subject: subject, PlainText: plain})
}
