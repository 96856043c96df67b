package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"time"

	"github.com/hako/durafmt"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/ghostnote/ghost-note/backend/internal/config"
)

// ErrNotConfigured is returned when no SMTP credentials were supplied.
var ErrNotConfigured = &DeliveryError{
	Message: "Email service not configured. Please contact administrator.",
	Err:     errors.New("smtp credentials missing"),
}

// DeliveryError carries a message that is safe to show to the requester.
type DeliveryError struct {
	Message string
	Err     error
}

func (e *DeliveryError) Error() string { return e.Message + ": " + e.Err.Error() }

func (e *DeliveryError) Unwrap() error { return e.Err }

// Mailer sends account e-mails over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

// New builds a Mailer. It is usable even without credentials; sends then fail with ErrNotConfigured.
func New(cfg config.MailConfig) *Mailer {
	m := &Mailer{from: cfg.Username}
	if cfg.Enabled() {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return m
}

// Configured reports whether SMTP credentials are present.
func (m *Mailer) Configured() bool {
	return m != nil && m.dialer != nil
}

// SendVerification mails the sign-up verification code.
func (m *Mailer) SendVerification(ctx context.Context, to, username, code string, validFor time.Duration) error {
	return m.send(ctx, to, "Ghost-Note | Verification Code", "verification",
		templateData{Username: username, Code: code, ValidFor: humanize(validFor)},
		"Failed to send verification email.")
}

// SendPasswordReset mails the password reset OTP.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, username, otp string, validFor time.Duration) error {
	return m.send(ctx, to, "Ghost-Note | Password Reset OTP", "reset",
		templateData{Username: username, Code: otp, ValidFor: humanize(validFor)},
		"Failed to send reset password email.")
}

func (m *Mailer) send(ctx context.Context, to, subject, tmpl string, data templateData, failure string) error {
	if !m.Configured() {
		return ErrNotConfigured
	}

	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, tmpl, data); err != nil {
		return &DeliveryError{Message: failure, Err: fmt.Errorf("render %s template: %w", tmpl, err)}
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body.String())

	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(msg) }()

	select {
	case <-ctx.Done():
		return &DeliveryError{Message: failure, Err: ctx.Err()}
	case err := <-done:
		if err != nil {
			logrus.Errorf("[mail] sending %s mail to %s failed: %v", tmpl, to, err)
			return &DeliveryError{Message: describe(err, failure), Err: err}
		}
	}

	logrus.Infof("[mail] sent %s mail to %s", tmpl, to)
	return nil
}

// describe maps SMTP failures to messages a user can act on.
func describe(err error, fallback string) string {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && protoErr.Code == 535 {
		return "Email authentication failed. Please check app password."
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return "Email connection failed. Please check internet connection."
	}
	return fallback
}

func humanize(d time.Duration) string {
	return durafmt.Parse(d).LimitFirstN(2).String()
}
