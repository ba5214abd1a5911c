package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"leadscout/pkg/logger"
)

// Notifier delivers a plain-text report
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// SMTPConfig is the relay and recipient. Any empty field disables sending.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	To       string `mapstructure:"to"`
}

// Configured reports whether every field needed to send is set
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.User != "" && c.Password != "" && c.To != ""
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends through an authenticated relay. smtp.SendMail upgrades
// with STARTTLS when the server offers it, which PLAIN auth requires.
type SMTPNotifier struct {
	cfg  SMTPConfig
	send sendFunc
	now  func() time.Time
	log  *logger.Logger
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPNotifier{
		cfg:  cfg,
		send: smtp.SendMail,
		now:  time.Now,
		log:  logger.GetLogger().WithField("component", "notifier"),
	}
}

// Notify is a silent no-op when the relay is not configured
func (n *SMTPNotifier) Notify(ctx context.Context, subject, body string) error {
	if !n.cfg.Configured() {
		n.log.Debug("Email not configured - skipping notification")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	auth := smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)
	msg := n.compose(subject, body)

	if err := n.send(addr, auth, n.cfg.User, []string{n.cfg.To}, msg); err != nil {
		return fmt.Errorf("send email via %s: %w", addr, err)
	}
	n.log.WithField("to", logger.MaskEmail(n.cfg.To)).Info("Email report sent")
	return nil
}

func (n *SMTPNotifier) compose(subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + n.cfg.User + "\r\n")
	b.WriteString("To: " + n.cfg.To + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + n.now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}

// Nop discards every notification
type Nop struct{}

func (Nop) Notify(context.Context, string, string) error { return nil }
