// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireline/hireline/pkg/errutil"
)

func TestLogMailer_OmitsBodyAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	require.NoError(t, NewLogMailer(logger).Send(context.Background(), Message{
		To: "a@example.com", Subject: "hi", Body: "secret 123456",
	}))
	assert.Contains(t, buf.String(), "a@example.com")
	assert.NotContains(t, buf.String(), "123456")
}

func TestNewSMTPMailer_Validates(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{Port: 25, From: "x@example.com"})
	errutil.AssertErrorCode(t, err, "MAIL_CONFIG_INVALID")
	_, err = NewSMTPMailer(SMTPConfig{Host: "smtp", Port: 25})
	errutil.AssertErrorCode(t, err, "MAIL_CONFIG_INVALID")
}

func TestSMTPMailer_Send(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{
		Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "no-reply@example.com",
	})
	require.NoError(t, err)

	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	var gotAuth smtp.Auth
	m.send = func(addr string, a smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, msg
		return nil
	}

	require.NoError(t, m.Send(context.Background(), Message{To: "a@example.com", Subject: "Hello", Body: "line1\nline2"}))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, []string{"a@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Hello\r\n")
	assert.Contains(t, string(gotMsg), "line1\r\nline2")
}

func TestSMTPMailer_SendFailure(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp", Port: 25, From: "x@example.com"})
	require.NoError(t, err)
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("421 busy") }

	errutil.AssertErrorCode(t, m.Send(context.Background(), Message{To: "a@example.com"}), "MAIL_DELIVERY_FAILED")
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp", Port: 25, From: "x@example.com"})
	require.NoError(t, err)
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not run")
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, Message{To: "a@example.com"}), context.Canceled)
}
