package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// Service composes invoice emails and hands them to a Sender.
type Service struct {
	sender        Sender
	fromAddress   string
	fromName      string
	templateCache *template.Template
}

// NewService creates a new email service
func NewService(sender Sender, fromAddress, fromName string) (*Service, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &Service{
		sender:        sender,
		fromAddress:   fromAddress,
		fromName:      fromName,
		templateCache: tmpl,
	}, nil
}

// SendInvoice renders the invoice email and sends it with the PDF attached.
func (s *Service) SendInvoice(ctx context.Context, data InvoiceEmail) error {
	if strings.TrimSpace(data.To) == "" {
		return ErrInvalidToAddress
	}

	htmlBody, textBody, err := s.renderTemplate(data.TemplateName(), data)
	if err != nil {
		return fmt.Errorf("failed to render invoice template: %w", err)
	}

	msg := &Email{
		To:       []string{data.To},
		From:     s.from(data.BusinessName),
		ReplyTo:  data.ReplyTo,
		Subject:  data.Subject(),
		HTMLBody: htmlBody,
		TextBody: textBody,
	}
	if len(data.PDF) > 0 {
		msg.Attachments = []Attachment{{
			Filename:    data.AttachmentName(),
			ContentType: "application/pdf",
			Content:     data.PDF,
		}}
	}

	if _, err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send invoice email: %w", err)
	}
	return nil
}

// from shows the business as the display name when there is one.
func (s *Service) from(businessName string) string {
	name := businessName
	if name == "" {
		name = s.fromName
	}
	if name == "" {
		return s.fromAddress
	}
	return fmt.Sprintf("%s <%s>", name, s.fromAddress)
}

// Helper method to render a template
func (s *Service) renderTemplate(templateName string, data interface{}) (string, string, error) {
	var htmlBuf bytes.Buffer
	if err := s.templateCache.ExecuteTemplate(&htmlBuf, "email_layout", data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	htmlBody := htmlBuf.String()
	return htmlBody, generatePlainText(htmlBody), nil
}

// generatePlainText creates a simple plain text version from HTML
func generatePlainText(html string) string {
	text := html

	for _, br := range []string{"<br>", "<br/>", "<br />"} {
		text = strings.ReplaceAll(text, br, "\n")
	}
	for _, block := range []string{"</p>", "</h1>", "</h2>", "</h3>"} {
		text = strings.ReplaceAll(text, block, block+"\n\n")
	}
	text = strings.ReplaceAll(text, "</div>", "</div>\n")

	for {
		start := strings.Index(text, "<")
		if start < 0 {
			break
		}
		end := strings.Index(text[start:], ">")
		if end < 0 {
			break
		}
		text = text[:start] + text[start+end+1:]
	}

	text = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#34;", "\"",
		"&#39;", "'",
	).Replace(text)

	var cleaned []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n")
}
