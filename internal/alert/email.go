package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/dwsmith1983/healthwatch/pkg/types"
)

// Mailer is the subset of *gomail.Dialer used by EmailSink.
type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// EmailSink mails alerts over SMTP.
type EmailSink struct {
	mailer Mailer
	from   string
	to     []string
}

// EmailSinkOption configures an EmailSink.
type EmailSinkOption func(*EmailSink)

// WithMailer sets a custom mailer (useful for testing).
func WithMailer(m Mailer) EmailSinkOption {
	return func(s *EmailSink) { s.mailer = m }
}

// NewEmailSink creates a new email alert sink. Port defaults to 587.
func NewEmailSink(cfg EmailConfig, opts ...EmailSinkOption) (*EmailSink, error) {
	if cfg.From == "" {
		return nil, errors.New("sender address required")
	}
	if len(cfg.To) == 0 {
		return nil, errors.New("at least one recipient required")
	}
	s := &EmailSink{from: cfg.From, to: cfg.To}
	for _, o := range opts {
		o(s)
	}
	if s.mailer == nil {
		if cfg.Host == "" {
			return nil, errors.New("SMTP host required")
		}
		port := cfg.Port
		if port == 0 {
			port = 587
		}
		s.mailer = gomail.NewDialer(cfg.Host, port, cfg.Username, cfg.Password)
	}
	return s, nil
}

// Name returns the sink identifier.
func (s *EmailSink) Name() string { return "email" }

// Send mails one message per alert. SMTP dialing does not take a context, so
// a cancelled context is only honoured before the dial starts.
func (s *EmailSink) Send(ctx context.Context, alert types.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.to...)
	m.SetHeader("Subject", fmt.Sprintf("[%s] %s %s", strings.ToUpper(string(alert.Level)), alert.Sample.Metric, alert.Threshold))
	m.SetBody("text/plain", emailBody(alert))

	if err := s.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("sending alert mail: %w", err)
	}
	return nil
}

func emailBody(alert types.Alert) string {
	var b strings.Builder
	b.WriteString(alert.Message)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "metric:    %s\n", alert.Sample.Metric)
	fmt.Fprintf(&b, "value:     %s%s\n", formatValue(alert.Sample.Value), alert.Sample.Unit)
	fmt.Fprintf(&b, "threshold: %s\n", alert.Threshold)
	fmt.Fprintf(&b, "sampled:   %s\n", alert.Sample.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"))
	fmt.Fprintf(&b, "detected:  %s\n", alert.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"))
	if alert.Host != "" {
		fmt.Fprintf(&b, "host:      %s\n", alert.Host)
	}
	fmt.Fprintf(&b, "id:        %s\n", alert.ID)
	return b.String()
}
