package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/infra/logger"
)

// LogSender renders templates and logs them instead of delivering. Used when no SMTP host is configured.
type LogSender struct {
	renderer *Renderer
	logger   *zap.Logger
}

func NewLogSender(renderer *Renderer, log *zap.Logger) *LogSender {
	return &LogSender{renderer: renderer, logger: log}
}

func (s *LogSender) Send(ctx context.Context, template string, recipient string, vars map[string]string) error {
	rendered, err := s.renderer.Render(template, vars)
	if err != nil {
		return err
	}

	logger.FromContext(s.logger, ctx).Info("mail delivery skipped, smtp not configured",
		zap.String("template", template),
		zap.String("recipient", logger.MaskEmail(recipient)),
		zap.String("subject", rendered.Subject),
		zap.String("body", rendered.Text),
	)
	return nil
}

var _ port.MailSender = (*LogSender)(nil)
