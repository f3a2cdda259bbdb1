// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package mail

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/samber/oops"

	"github.com/hireline/hireline/internal/auth"
)

const defaultSendTimeout = 10 * time.Second

// Notifier turns auth deliveries into emails.
type Notifier struct {
	mailer   Mailer
	resetURL string
	timeout  time.Duration
}

var (
	_ auth.OTPChannel   = (*Notifier)(nil)
	_ auth.ResetChannel = (*Notifier)(nil)
)

// NewNotifier creates a Notifier. resetURL is the page that accepts a reset
// token in its "token" query parameter.
func NewNotifier(mailer Mailer, resetURL string, timeout time.Duration) (*Notifier, error) {
	if mailer == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("mailer is required")
	}
	if _, err := url.Parse(resetURL); err != nil || resetURL == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").With("reset_url", resetURL).Errorf("reset url is invalid")
	}
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &Notifier{mailer: mailer, resetURL: resetURL, timeout: timeout}, nil
}

// DeliverOTP implements auth.OTPChannel.
func (n *Notifier) DeliverOTP(ctx context.Context, email auth.Email, code string, purpose auth.OTPPurpose) error {
	body := fmt.Sprintf("Your Hireline verification code is %s.\n\nIt expires in %d minutes. "+
		"If you did not request it, ignore this email.\n", code, int(auth.OTPExpiry/time.Minute))
	return n.send(ctx, Message{
		To:      email.String(),
		Subject: otpSubject(purpose),
		Body:    body,
	})
}

// DeliverPasswordReset implements auth.ResetChannel.
func (n *Notifier) DeliverPasswordReset(ctx context.Context, email auth.Email, token auth.IssuedToken) error {
	link, err := n.resetLink(token.Token)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("Reset your Hireline password here:\n\n%s\n\nThe link expires at %s.\n",
		link, token.ExpiresAt.UTC().Format(time.RFC1123))
	return n.send(ctx, Message{
		To:      email.String(),
		Subject: "Reset your Hireline password",
		Body:    body,
	})
}

func (n *Notifier) resetLink(token string) (string, error) {
	u, err := url.Parse(n.resetURL)
	if err != nil {
		return "", oops.Code("MAIL_CONFIG_INVALID").Wrap(err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (n *Notifier) send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := n.mailer.Send(ctx, msg); err != nil {
		return oops.Code("MAIL_DELIVERY_FAILED").With("subject", msg.Subject).Wrap(err)
	}
	return nil
}

func otpSubject(purpose auth.OTPPurpose) string {
	switch purpose {
	case auth.PurposeRegisterCandidate:
		return "Confirm your Hireline candidate account"
	case auth.PurposeRegisterRecruiter:
		return "Confirm your Hireline recruiter account"
	default:
		return "Your Hireline verification code"
	}
}
