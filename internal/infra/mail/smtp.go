package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/infra/config"
	"github.com/arklim/account-service/internal/infra/logger"
)

type dialer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPSender delivers rendered templates over SMTP.
type SMTPSender struct {
	client   dialer
	renderer *Renderer
	cfg      config.SMTPSettings
	logger   *zap.Logger
}

// NewSMTPSender builds a go-mail client from cfg.
func NewSMTPSender(cfg config.SMTPSettings, renderer *Renderer, log *zap.Logger) (*SMTPSender, error) {
	opts := []gomail.Option{gomail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	if cfg.Secure {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPSender{client: client, renderer: renderer, cfg: cfg, logger: log}, nil
}

func (s *SMTPSender) buildMessage(rendered *Rendered, recipient string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.cfg.SenderName, s.cfg.SenderAddress); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(rendered.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, rendered.Text)
	msg.AddAlternativeString(gomail.TypeTextHTML, rendered.HTML)
	return msg, nil
}

// Send renders template with vars and delivers it to recipient.
func (s *SMTPSender) Send(ctx context.Context, template string, recipient string, vars map[string]string) error {
	rendered, err := s.renderer.Render(template, vars)
	if err != nil {
		return err
	}

	msg, err := s.buildMessage(rendered, recipient)
	if err != nil {
		return err
	}

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send %s mail: %w", template, err)
	}

	logger.FromContext(s.logger, ctx).Info("mail sent",
		zap.String("template", template),
		zap.String("recipient", logger.MaskEmail(recipient)),
	)
	return nil
}

var _ port.MailSender = (*SMTPSender)(nil)
