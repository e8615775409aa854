package mail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	Auth     string        `mapstructure:"auth"`
	TLS      string        `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Configured reports whether a relay host is set.
func (c SMTPConfig) Configured() bool {
	return strings.TrimSpace(c.Host) != ""
}

// SMTPSender delivers messages through an SMTP relay. A connection is dialed
// per message.
type SMTPSender struct {
	cfg    SMTPConfig
	opts   []gomail.Option
	logger *zap.Logger
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender validates cfg and prepares the client options.
func NewSMTPSender(cfg SMTPConfig, logger *zap.Logger) (*SMTPSender, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("mail: smtp host is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	policy, err := parseTLSPolicy(cfg.TLS)
	if err != nil {
		return nil, err
	}
	opts := []gomail.Option{gomail.WithTLSPolicy(policy)}
	if cfg.Port > 0 {
		opts = append(opts, gomail.WithPort(cfg.Port))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		auth := gomail.SMTPAuthPlain
		if cfg.Auth != "" {
			if err := auth.UnmarshalString(cfg.Auth); err != nil {
				return nil, fmt.Errorf("mail: smtp auth %q: %w", cfg.Auth, err)
			}
		}
		opts = append(opts,
			gomail.WithSMTPAuth(auth),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	return &SMTPSender{cfg: cfg, opts: opts, logger: logger}, nil
}

// Send dials the relay and delivers msg.
func (s *SMTPSender) Send(ctx context.Context, msg Message) (string, error) {
	if msg.FromAddress == "" {
		msg.FromAddress = s.cfg.From
	}
	m, err := buildMsg(msg)
	if err != nil {
		return "", err
	}

	client, err := gomail.NewClient(s.cfg.Host, s.opts...)
	if err != nil {
		return "", fmt.Errorf("mail: smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return "", fmt.Errorf("mail: send to %s: %w", s.cfg.Host, err)
	}

	id := m.GetMessageID()
	s.logger.Debug("mail sent", zap.String("message_id", id), zap.String("relay", s.cfg.Host))
	return id, nil
}

// FileSender writes each message as an .eml file into Dir.
type FileSender struct {
	Dir string
}

var _ Sender = (*FileSender)(nil)

// Send writes msg to Dir/<message-id>.eml.
func (s *FileSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m, err := buildMsg(msg)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("mail: create outbox: %w", err)
	}

	id := m.GetMessageID()
	name := strings.Trim(id, "<>")
	name = strings.NewReplacer("@", "_", "/", "_").Replace(name)
	if err := m.WriteToFile(filepath.Join(s.Dir, name+".eml")); err != nil {
		return "", fmt.Errorf("mail: write message: %w", err)
	}
	return id, nil
}

func buildMsg(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.FromFormat(msg.FromName, msg.FromAddress); err != nil {
		return nil, fmt.Errorf("mail: from %q: %w", msg.FromAddress, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("mail: to %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetMessageID()
	m.SetDate()
	m.SetBodyString(gomail.TypeTextHTML, msg.HTML)
	if msg.Text != "" {
		m.AddAlternativeString(gomail.TypeTextPlain, msg.Text)
	}
	return m, nil
}

func parseTLSPolicy(s string) (gomail.TLSPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mandatory":
		return gomail.TLSMandatory, nil
	case "opportunistic":
		return gomail.TLSOpportunistic, nil
	case "none", "notls":
		return gomail.NoTLS, nil
	}
	return 0, fmt.Errorf("mail: unknown tls policy %q", s)
}
