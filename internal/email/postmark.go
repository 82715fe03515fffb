package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const postmarkAPI = "https://api.postmarkapp.com"

// PostmarkSender implements the Sender interface using the Postmark API.
type PostmarkSender struct {
	apiKey  string
	from    string
	baseURL string
	client  *http.Client
}

type postmarkEmail struct {
	From        string           `json:"From"`
	To          string           `json:"To"`
	ReplyTo     string           `json:"ReplyTo,omitempty"`
	Subject     string           `json:"Subject"`
	HtmlBody    string           `json:"HtmlBody,omitempty"`
	TextBody    string           `json:"TextBody,omitempty"`
	Headers     []postmarkHeader `json:"Headers,omitempty"`
	Attachments []postmarkAttach `json:"Attachments,omitempty"`
}

type postmarkHeader struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

type postmarkAttach struct {
	Name        string `json:"Name"`
	Content     string `json:"Content"`
	ContentType string `json:"ContentType"`
}

type postmarkResponse struct {
	To        string `json:"To"`
	MessageID string `json:"MessageID"`
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

// PostmarkOption customizes a PostmarkSender.
type PostmarkOption func(*PostmarkSender)

// WithPostmarkBaseURL points the sender at another API host.
func WithPostmarkBaseURL(url string) PostmarkOption {
	return func(p *PostmarkSender) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithPostmarkTransport replaces the HTTP transport, e.g. with a tracing one.
func WithPostmarkTransport(rt http.RoundTripper) PostmarkOption {
	return func(p *PostmarkSender) { p.client.Transport = rt }
}

// NewPostmarkSender creates a new Postmark email sender.
// from is used when a message has no sender of its own.
func NewPostmarkSender(apiKey, from string, opts ...PostmarkOption) *PostmarkSender {
	p := &PostmarkSender{
		apiKey:  apiKey,
		from:    from,
		baseURL: postmarkAPI,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Send sends an email via Postmark
func (p *PostmarkSender) Send(ctx context.Context, email *Email) (string, error) {
	from := email.From
	if from == "" {
		from = p.from
	}
	if from == "" {
		return "", ErrInvalidFromAddress
	}
	if len(email.To) == 0 {
		return "", ErrInvalidToAddress
	}

	payload := postmarkEmail{
		From:     from,
		To:       strings.Join(email.To, ","),
		ReplyTo:  email.ReplyTo,
		Subject:  email.Subject,
		HtmlBody: email.HTMLBody,
		TextBody: email.TextBody,
	}

	for name, value := range email.Headers {
		payload.Headers = append(payload.Headers, postmarkHeader{Name: name, Value: value})
	}

	for _, att := range email.Attachments {
		payload.Attachments = append(payload.Attachments, postmarkAttach{
			Name:        att.Filename,
			Content:     base64.StdEncoding.EncodeToString(att.Content),
			ContentType: att.ContentType,
		})
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/email", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", deliveryError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", deliveryError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", deliveryError(fmt.Errorf("postmark API error (status %d): %s", resp.StatusCode, string(body)))
	}

	var result postmarkResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", deliveryError(fmt.Errorf("parse response: %w", err))
	}

	if result.ErrorCode != 0 {
		return "", deliveryError(fmt.Errorf("postmark error %d: %s", result.ErrorCode, result.Message))
	}

	return result.MessageID, nil
}
