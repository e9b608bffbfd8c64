package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/smtp"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/rs/zerolog"
	"github.com/stanstork/agrotrack-api/internal/config"
	"golang.org/x/time/rate"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends HTML digests over SMTP, throttled to the configured rate.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	limiter  *rate.Limiter
	sendMail sendMailFunc
	now      func() time.Time
	logger   zerolog.Logger
}

func NewSMTPMailer(cfg config.EmailConfig, logger zerolog.Logger) (*SMTPMailer, error) {
	host := strings.TrimSpace(cfg.SMTPHost)
	from := strings.TrimSpace(cfg.From)
	if host == "" {
		return nil, fmt.Errorf("smtp_host is required for email notifier")
	}
	if from == "" {
		return nil, fmt.Errorf("from is required for email notifier")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}

	limit := rate.Inf
	if cfg.RatePerMinute > 0 {
		limit = rate.Limit(float64(cfg.RatePerMinute) / 60)
	}

	return &SMTPMailer{
		host:     host,
		port:     port,
		username: strings.TrimSpace(cfg.Username),
		password: cfg.Password,
		from:     from,
		limiter:  rate.NewLimiter(limit, 5),
		sendMail: smtp.SendMail,
		now:      time.Now,
		logger:   logger.With().Str("notifier", "email").Logger(),
	}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, recipient, subject, htmlBody string) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return fmt.Errorf("recipient is required")
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("email rate limit: %w", err)
	}

	message, err := m.compose(recipient, subject, htmlBody)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	if err := m.sendMail(addr, auth, m.from, []string{recipient}, message); err != nil {
		return err
	}

	m.logger.Info().
		Str("recipient", recipient).
		Str("subject", subject).
		Msg("email notification sent")
	return nil
}

func (m *SMTPMailer) compose(recipient, subject, htmlBody string) ([]byte, error) {
	var h mail.Header
	h.SetDate(m.now())
	h.SetSubject(subject)
	h.SetAddressList("From", []*mail.Address{{Name: "AgroTrack", Address: m.from}})
	h.SetAddressList("To", []*mail.Address{{Address: recipient}})
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message writer: %w", err)
	}
	if _, err := io.WriteString(w, htmlBody); err != nil {
		return nil, fmt.Errorf("write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close message writer: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *SMTPMailer) String() string {
	return "SMTPMailer"
}
