// Package mailer sends the OTP and notification emails.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/certiva/website-backend/internal/config"
	"github.com/certiva/website-backend/model"
)

// Mailer delivers the emails the backend sends.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string, ttl time.Duration) error
	SendInquiryNotification(ctx context.Context, inquiry *model.Inquiry, office *model.ContactOffice) error
	SendApplicationNotification(ctx context.Context, app *model.JobApplication, career *model.Career) error
}

type sendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends mail through an SMTP relay. Without credentials the mail is
// logged instead.
type SMTPMailer struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
	send   sendFunc
}

// New returns an SMTPMailer for cfg.
func New(cfg config.SMTPConfig, logger *zap.Logger) *SMTPMailer {
	m := &SMTPMailer{cfg: cfg, logger: logger}
	m.send = m.sendMail
	return m
}

// Configured reports whether SMTP credentials are present.
func (m *SMTPMailer) Configured() bool {
	return m.cfg.Host != "" && m.cfg.Username != "" && m.cfg.Password != ""
}

type otpData struct {
	Code      string
	ExpiresIn string
}

// SendOTP mails a login code.
func (m *SMTPMailer) SendOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	if !m.Configured() {
		m.logger.Warn("SMTP not configured, OTP not sent", zap.String("to", to))
		return nil
	}
	body, err := render(otpTemplate, otpData{Code: code, ExpiresIn: ttl.Round(time.Minute).String()})
	if err != nil {
		return fmt.Errorf("render otp email: %w", err)
	}
	return m.deliver(ctx, to, "Your admin login code", body)
}

type inquiryData struct {
	Inquiry *model.Inquiry
	Office  string
}

// SendInquiryNotification tells the notify address about a contact form entry.
func (m *SMTPMailer) SendInquiryNotification(ctx context.Context, inquiry *model.Inquiry, office *model.ContactOffice) error {
	to := m.notifyAddress(office)
	if !m.Configured() || to == "" {
		m.logger.Info("Inquiry notification skipped", zap.String("from", inquiry.Email), zap.String("subject", inquiry.Subject))
		return nil
	}
	data := inquiryData{Inquiry: inquiry}
	if office != nil {
		data.Office = office.Name
	}
	body, err := render(inquiryTemplate, data)
	if err != nil {
		return fmt.Errorf("render inquiry email: %w", err)
	}
	subject := "New inquiry from " + inquiry.Name
	if inquiry.Subject != "" {
		subject += ": " + inquiry.Subject
	}
	return m.deliver(ctx, to, subject, body)
}

type applicationData struct {
	Application *model.JobApplication
	Career      *model.Career
}

// SendApplicationNotification tells the career's apply address, or the
// notify address, about a new application.
func (m *SMTPMailer) SendApplicationNotification(ctx context.Context, app *model.JobApplication, career *model.Career) error {
	to := career.ApplyEmail
	if to == "" {
		to = m.cfg.NotifyEmail
	}
	if !m.Configured() || to == "" {
		m.logger.Info("Application notification skipped", zap.String("career", career.Slug), zap.String("from", app.Email))
		return nil
	}
	body, err := render(applicationTemplate, applicationData{Application: app, Career: career})
	if err != nil {
		return fmt.Errorf("render application email: %w", err)
	}
	return m.deliver(ctx, to, "New application: "+career.Title, body)
}

func (m *SMTPMailer) notifyAddress(office *model.ContactOffice) string {
	if office != nil && office.Email != "" {
		return office.Email
	}
	return m.cfg.NotifyEmail
}

// deliver sends an HTML email using SMTP
func (m *SMTPMailer) deliver(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		m.cfg.FromName, m.cfg.FromEmail, to, headerSafe(subject), htmlBody,
	))

	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	if err := m.send(ctx, addr, auth, m.cfg.FromEmail, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// sendMail runs one SMTP exchange. The configured timeout bounds the dial
// and every later read and write, so a stalled relay cannot block callers.
func (m *SMTPMailer) sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// unblock pending reads when ctx ends before the deadline
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		_ = conn.Close()
		return err
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// headerSafe strips line breaks so user input cannot inject headers.
func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
