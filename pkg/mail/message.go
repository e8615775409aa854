// Package mail delivers rendered order documents. Sender is the transport
// contract; SMTPSender speaks SMTP and FileSender drops .eml files for local
// runs.
package mail

import (
	"context"
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-orderwizard/pkg/model"
)

// Message is one outgoing email.
type Message struct {
	FromName    string
	FromAddress string
	To          string
	Subject     string
	HTML        string
	Text        string
}

// Sender delivers a message and returns its Message-ID.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Order carries the values the envelope is built from.
type Order struct {
	Brand   string
	Product string
	Size    string
	Email   string
}

// Envelope addresses a rendered document: From is the template brand name at
// fromAddress and the subject names the ordered product.
func Envelope(desc model.TemplateDescriptor, order Order, fromAddress string, body []byte) Message {
	brand := desc.BrandName()
	subject := brand + " — " + strings.TrimSpace(order.Brand+" "+order.Product)
	if size := strings.TrimSpace(order.Size); size != "" {
		subject += " (" + size + ")"
	}

	htmlBody := string(body)
	return Message{
		FromName:    brand,
		FromAddress: fromAddress,
		To:          strings.TrimSpace(order.Email),
		Subject:     subject,
		HTML:        htmlBody,
		Text:        PlainText(htmlBody),
	}
}

var (
	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy

	blankRun   = regexp.MustCompile(`[ \t\r\f\v]+`)
	emptyLines = regexp.MustCompile(`\n{3,}`)
)

// PlainText strips all markup from an HTML body for the text/plain part.
func PlainText(body string) string {
	strictOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})

	// keep block boundaries as line breaks before the tags disappear
	body = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "</p>\n", "</tr>", "</tr>\n", "</h1>", "</h1>\n").Replace(body)
	text := html.UnescapeString(strictPolicy.Sanitize(body))

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(blankRun.ReplaceAllString(line, " "))
	}
	text = emptyLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}
