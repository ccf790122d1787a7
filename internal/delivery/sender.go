// Package delivery emails documents to a recipient.
package delivery

import (
	"context"
	"fmt"
	"html"
	"net/mail"
	"strings"

	"voxnote/pkg/apperr"
	"voxnote/pkg/logger"

	"github.com/resend/resend-go/v2"
)

const untitled = "Untitled"

// Message is one document addressed to one recipient.
type Message struct {
	To       string
	Title    string
	Markdown string
}

// Sender is the remote email-delivery procedure.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// ResendSender delivers through the Resend API.
type ResendSender struct {
	Client *resend.Client
	From   string
}

func NewResendSender(client *resend.Client, from string) *ResendSender {
	return &ResendSender{Client: client, From: from}
}

// Send validates the recipient, composes the email and returns the provider's
// message id.
func (s *ResendSender) Send(ctx context.Context, msg Message) (string, error) {
	const op = "delivery.Send"
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return "", apperr.New(apperr.Validation, op, "a valid recipient email is required")
	}

	resp, err := s.Client.Emails.SendWithContext(ctx, Compose(s.From, msg))
	if err != nil {
		logger.Sugar.Errorf("Failed to send document %q to %s: %v", msg.Title, msg.To, err)
		return "", apperr.Wrap(apperr.RemoteDeliveryFailed, op, err)
	}
	logger.Sugar.Infof("Sent document %q to %s (id %s)", msg.Title, msg.To, resp.Id)
	return resp.Id, nil
}

// Compose builds the email: the markdown as plain text, and escaped inside a
// <pre> block for HTML clients.
func Compose(from string, msg Message) *resend.SendEmailRequest {
	title := strings.TrimSpace(msg.Title)
	if title == "" {
		title = untitled
	}
	return &resend.SendEmailRequest{
		From:    from,
		To:      []string{msg.To},
		Subject: fmt.Sprintf("Markdown Document: %s", title),
		Html:    "<p>Here's your markdown document:</p><pre>" + html.EscapeString(msg.Markdown) + "</pre>",
		Text:    msg.Markdown,
	}
}
