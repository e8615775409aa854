package mail_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-orderwizard/pkg/mail"
	"github.com/goliatone/go-orderwizard/pkg/model"
)

func TestEnvelope(t *testing.T) {
	desc := model.TemplateDescriptor{ID: "stockx"}
	msg := mail.Envelope(desc, mail.Order{
		Brand:   "Nike",
		Product: "Dunk Low",
		Size:    "42",
		Email:   " buyer@example.com ",
	}, "orders@example.com", []byte("<p>Hello &amp; welcome</p>"))

	if msg.FromName != "Stockx" {
		t.Fatalf("expected brand display name, got %q", msg.FromName)
	}
	if msg.To != "buyer@example.com" {
		t.Fatalf("expected trimmed recipient, got %q", msg.To)
	}
	if want := "Stockx — Nike Dunk Low (42)"; msg.Subject != want {
		t.Fatalf("expected subject %q, got %q", want, msg.Subject)
	}
	if msg.Text != "Hello & welcome" {
		t.Fatalf("unexpected text part %q", msg.Text)
	}

	noSize := mail.Envelope(desc, mail.Order{Brand: "Nike", Product: "Dunk Low"}, "", nil)
	if noSize.Subject != "Stockx — Nike Dunk Low" {
		t.Fatalf("unexpected subject without size %q", noSize.Subject)
	}
}

func TestPlainText_StripsMarkup(t *testing.T) {
	body := `<table><tr><td>Total</td><td><strong>268.90$</strong></td></tr></table><p>Line one<br>Line two</p><script>alert(1)</script>`
	got := mail.PlainText(body)

	for _, want := range []string{"268.90$", "Line one\nLine two"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
	if strings.ContainsAny(got, "<>") {
		t.Fatalf("markup survived: %q", got)
	}
}

func TestFileSender_WritesMessage(t *testing.T) {
	dir := t.TempDir()
	sender := &mail.FileSender{Dir: dir}

	id, err := sender.Send(context.Background(), mail.Message{
		FromName:    "Nike",
		FromAddress: "orders@example.com",
		To:          "buyer@example.com",
		Subject:     "Order",
		HTML:        "<p>Hi</p>",
		Text:        "Hi",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id == "" {
		t.Fatalf("expected message id")
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one message file, got %v (%v)", entries, err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	for _, want := range []string{"orders@example.com", "buyer@example.com", "text/html", "text/plain"} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("expected %q in message:\n%s", want, raw)
		}
	}
}

func TestFileSender_RejectsBadRecipient(t *testing.T) {
	sender := &mail.FileSender{Dir: t.TempDir()}
	_, err := sender.Send(context.Background(), mail.Message{FromAddress: "orders@example.com", To: "not-an-address"})
	if err == nil {
		t.Fatalf("expected recipient error")
	}
}

func TestNewSMTPSender_Config(t *testing.T) {
	if _, err := mail.NewSMTPSender(mail.SMTPConfig{}, nil); err == nil {
		t.Fatalf("expected missing host error")
	}
	if _, err := mail.NewSMTPSender(mail.SMTPConfig{Host: "smtp.example.com", TLS: "sometimes"}, nil); err == nil {
		t.Fatalf("expected tls policy error")
	}
	if _, err := mail.NewSMTPSender(mail.SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", Auth: "login"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
