package mail

import (
	"context"
	"errors"
	"strings"
	"testing"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/account-service/internal/infra/config"
)

var emailUpdateVars = map[string]string{
	"EMAIL":  "new@example.com",
	"UI_URL": "https://ui.example.com",
	"TOKEN":  "0123456789abcdef",
}

type fakeDialer struct {
	messages []*gomail.Msg
	err      error
}

func (d *fakeDialer) DialAndSendWithContext(_ context.Context, messages ...*gomail.Msg) error {
	if d.err != nil {
		return d.err
	}
	d.messages = append(d.messages, messages...)
	return nil
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

func TestRenderEmailUpdate(t *testing.T) {
	rendered, err := newRenderer(t).Render("email-update", emailUpdateVars)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if rendered.Subject == "" || strings.Contains(rendered.Subject, "\n") {
		t.Fatalf("unexpected subject %q", rendered.Subject)
	}
	link := "https://ui.example.com/update-email?token=0123456789abcdef"
	if !strings.Contains(rendered.Text, link) {
		t.Fatalf("text body missing confirmation link: %s", rendered.Text)
	}
	if !strings.Contains(rendered.HTML, link) {
		t.Fatalf("html body missing confirmation link: %s", rendered.HTML)
	}
	if !strings.Contains(rendered.Text, "new@example.com") {
		t.Fatalf("text body missing new address")
	}
}

func TestRenderRejectsUnknownTemplateAndMissingVars(t *testing.T) {
	r := newRenderer(t)

	if _, err := r.Render("welcome", emailUpdateVars); !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("expected ErrUnknownTemplate, got %v", err)
	}
	if _, err := r.Render("email-update", map[string]string{"EMAIL": "x@example.com"}); err == nil {
		t.Fatalf("expected error for missing template variables")
	}
}

func TestSMTPSenderSend(t *testing.T) {
	dialer := &fakeDialer{}
	sender := &SMTPSender{
		client:   dialer,
		renderer: newRenderer(t),
		cfg:      config.SMTPSettings{SenderAddress: "no-reply@example.com", SenderName: "Accounts"},
		logger:   zaptest.NewLogger(t),
	}

	if err := sender.Send(context.Background(), "email-update", "new@example.com", emailUpdateVars); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if len(dialer.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(dialer.messages))
	}

	recipients, err := dialer.messages[0].GetRecipients()
	if err != nil {
		t.Fatalf("GetRecipients: %v", err)
	}
	if len(recipients) != 1 || recipients[0] != "new@example.com" {
		t.Fatalf("unexpected recipients %v", recipients)
	}
	subject := dialer.messages[0].GetGenHeader(gomail.HeaderSubject)
	if len(subject) != 1 || subject[0] == "" {
		t.Fatalf("expected subject header, got %v", subject)
	}
}

func TestSMTPSenderPropagatesDeliveryFailure(t *testing.T) {
	sender := &SMTPSender{
		client:   &fakeDialer{err: errors.New("connection refused")},
		renderer: newRenderer(t),
		cfg:      config.SMTPSettings{SenderAddress: "no-reply@example.com"},
		logger:   zaptest.NewLogger(t),
	}

	if err := sender.Send(context.Background(), "email-update", "new@example.com", emailUpdateVars); err == nil {
		t.Fatalf("expected delivery error")
	}
}

func TestSMTPSenderRejectsInvalidRecipient(t *testing.T) {
	dialer := &fakeDialer{}
	sender := &SMTPSender{
		client:   dialer,
		renderer: newRenderer(t),
		cfg:      config.SMTPSettings{SenderAddress: "no-reply@example.com"},
		logger:   zaptest.NewLogger(t),
	}

	if err := sender.Send(context.Background(), "email-update", "not an address", emailUpdateVars); err == nil {
		t.Fatalf("expected invalid recipient error")
	}
	if len(dialer.messages) != 0 {
		t.Fatalf("expected nothing to be sent")
	}
}

func TestNewSMTPSenderRequiresHost(t *testing.T) {
	if _, err := NewSMTPSender(config.SMTPSettings{Port: 587}, newRenderer(t), zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error without smtp host")
	}
}

func TestLogSender(t *testing.T) {
	sender := NewLogSender(newRenderer(t), zaptest.NewLogger(t))
	if err := sender.Send(context.Background(), "email-update", "new@example.com", emailUpdateVars); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if err := sender.Send(context.Background(), "missing", "new@example.com", nil); err == nil {
		t.Fatalf("expected unknown template error")
	}
}
