// ABOUTME: Gmail reads, sending, and trashing for the mail capability
// ABOUTME: Parses message headers and plain-text bodies from full-format messages
package google

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"

	"github.com/harperreed/deskhand/models"
)

const defaultMailWindow = 10

// GetRecentEmails lists recent inbox messages, optionally filtered by a Gmail query.
func (p *Provider) GetRecentEmails(ctx context.Context, q models.MailQuery) ([]models.Email, error) {
	limit := q.MaxResults
	if limit <= 0 {
		limit = defaultMailWindow
	}
	emails, err := p.listMessages(ctx, q.Query, limit)
	if err != nil {
		return nil, p.fail("getRecentEmails", err)
	}
	return emails, nil
}

// ListRecentEmails returns the newest limit messages for incremental sync.
func (p *Provider) ListRecentEmails(ctx context.Context, limit int) ([]models.Email, error) {
	emails, err := p.listMessages(ctx, "", limit)
	if err != nil {
		return nil, p.fail("listRecentEmails", err)
	}
	return emails, nil
}

func (p *Provider) listMessages(ctx context.Context, query string, limit int) ([]models.Email, error) {
	s, err := p.services(ctx)
	if err != nil {
		return nil, err
	}

	call := s.gmail.Users.Messages.List("me").Context(ctx).MaxResults(int64(limit))
	if query != "" {
		call = call.Q(query)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, err
	}

	emails := make([]models.Email, 0, len(resp.Messages))
	for _, ref := range resp.Messages {
		msg, err := s.gmail.Users.Messages.Get("me", ref.Id).Context(ctx).Format("full").Do()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch message %s: %w", ref.Id, err)
		}
		emails = append(emails, toEmail(msg))
	}
	return emails, nil
}

// SendMail sends a plain-text message from the signed-in account.
func (p *Provider) SendMail(ctx context.Context, out models.OutgoingMail) error {
	s, err := p.services(ctx)
	if err != nil {
		return p.fail("sendMail", err)
	}

	raw := buildMessage(out)
	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString([]byte(raw))}
	if _, err := s.gmail.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return p.fail("sendMail", err)
	}
	return nil
}

// DeleteEmail moves a message to the trash.
func (p *Provider) DeleteEmail(ctx context.Context, id string) error {
	s, err := p.services(ctx)
	if err != nil {
		return p.fail("deleteEmail", err)
	}
	if _, err := s.gmail.Users.Messages.Trash("me", id).Context(ctx).Do(); err != nil {
		return p.fail("deleteEmail", err)
	}
	return nil
}

func buildMessage(out models.OutgoingMail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(out.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", out.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(out.Body)
	return b.String()
}

func toEmail(msg *gmail.Message) models.Email {
	headers := parseHeaders(msg.Payload)
	e := models.Email{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		From:     headers["From"],
		Subject:  headers["Subject"],
		Snippet:  msg.Snippet,
		Body:     plainBody(msg.Payload),
		Labels:   msg.LabelIds,
	}
	if to := headers["To"]; to != "" {
		if addrs, err := mail.ParseAddressList(to); err == nil {
			for _, a := range addrs {
				e.To = append(e.To, a.Address)
			}
		} else {
			e.To = []string{to}
		}
	}
	if msg.InternalDate > 0 {
		e.ReceivedAt = time.UnixMilli(msg.InternalDate).UTC()
	}
	return e
}

func parseHeaders(part *gmail.MessagePart) map[string]string {
	headers := make(map[string]string)
	if part == nil {
		return headers
	}
	for _, h := range part.Headers {
		headers[h.Name] = h.Value
	}
	return headers
}

// plainBody returns the first text/plain body in the part tree.
func plainBody(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}
	if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
		data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(part.Body.Data, "="))
		if err != nil {
			return ""
		}
		return string(data)
	}
	for _, child := range part.Parts {
		if body := plainBody(child); body != "" {
			return body
		}
	}
	return ""
}
