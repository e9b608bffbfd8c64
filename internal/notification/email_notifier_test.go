package notification

import (
	"bytes"
	"context"
	"io"
	"net/smtp"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanstork/agrotrack-api/internal/config"
)

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(config.EmailConfig{From: "alerts@farm.example"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewSMTPMailer(config.EmailConfig{SMTPHost: "smtp.farm.example"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestSMTPMailerComposesHTMLMessage(t *testing.T) {
	m, err := NewSMTPMailer(config.EmailConfig{
		SMTPHost: "smtp.farm.example",
		From:     "alerts@farm.example",
		Username: "alerts",
		Password: "secret",
	}, zerolog.Nop())
	require.NoError(t, err)
	m.now = func() time.Time { return time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC) }

	var (
		gotAddr string
		gotTo   []string
		gotMsg  []byte
	)
	m.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotTo = to
		gotMsg = msg
		return nil
	}

	err = m.Send(context.Background(), " owner@farm.example ", "Daily digest", "<p>engine oil</p>")
	require.NoError(t, err)

	assert.Equal(t, "smtp.farm.example:587", gotAddr)
	assert.Equal(t, []string{"owner@farm.example"}, gotTo)

	r, err := mail.CreateReader(bytes.NewReader(gotMsg))
	require.NoError(t, err)
	subject, err := r.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Daily digest", subject)

	part, err := r.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(part.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<p>engine oil</p>")
}

func TestSMTPMailerRejectsBlankRecipient(t *testing.T) {
	m, err := NewSMTPMailer(config.EmailConfig{SMTPHost: "smtp", From: "a@b.c"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Error(t, m.Send(context.Background(), "  ", "s", "b"))
}
