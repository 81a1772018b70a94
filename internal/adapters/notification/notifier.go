package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/tasklog/core/internal/infrastructure/config"
	"github.com/tasklog/core/internal/infrastructure/logger"
	"github.com/tasklog/core/internal/ports"
)

// LogNotifier writes notifications to the application log
type LogNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier creates a notifier that only logs
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log.WithComponent("notifier")}
}

func (n *LogNotifier) Notify(_ context.Context, recipients []string, subject, message string) error {
	n.logger.Infow("Notification",
		"recipients", recipients,
		"subject", subject,
		"message", message,
	)
	return nil
}

// SMTPNotifier sends notifications as plain text email
type SMTPNotifier struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier creates an SMTP notifier. PLAIN auth is used when a user is configured.
func NewSMTPNotifier(cfg config.NotificationConfig) *SMTPNotifier {
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}

	return &SMTPNotifier{
		addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		from: cfg.From,
		auth: auth,
		send: smtp.SendMail,
	}
}

func (n *SMTPNotifier) Notify(ctx context.Context, recipients []string, subject, message string) error {
	to := cleanRecipients(recipients)
	if len(to) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := n.send(n.addr, n.auth, n.from, to, buildMessage(n.from, to, subject, message)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	return nil
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

func cleanRecipients(recipients []string) []string {
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// New builds the notifier selected by the configuration
func New(cfg config.NotificationConfig, log *logger.Logger) (ports.Notifier, error) {
	switch cfg.Driver {
	case "", "log":
		return NewLogNotifier(log), nil
	case "smtp":
		return NewSMTPNotifier(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported notification driver %q", cfg.Driver)
	}
}
