package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	razorpay "github.com/razorpay/razorpay-go"
	rzperrors "github.com/razorpay/razorpay-go/errors"
)

// MinAmountMinor is the smallest amount Razorpay accepts for a payment link.
const MinAmountMinor = 100

// RazorpayConfig contains configuration for the Razorpay provider.
type RazorpayConfig struct {
	KeyID     string
	KeySecret string

	// WebhookSecret is configured on the Razorpay dashboard and signs every
	// webhook delivery.
	WebhookSecret string

	// MaxRetries is the maximum number of retries for transient failures.
	// Default: 3
	MaxRetries int

	// TimeoutSeconds bounds a single CreatePaymentLink call including retries.
	// Default: 15
	TimeoutSeconds int
}

// Validate checks that required configuration is present.
func (c *RazorpayConfig) Validate() error {
	if c.KeyID == "" || c.KeySecret == "" {
		return ErrInvalidAPIKey
	}
	if c.WebhookSecret == "" {
		return ErrWebhookSecretMissing
	}
	return nil
}

// IsTestMode returns true if using test mode API keys.
func (c *RazorpayConfig) IsTestMode() bool {
	return len(c.KeyID) > 8 && c.KeyID[:9] == "rzp_test_"
}

func (c *RazorpayConfig) timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *RazorpayConfig) maxRetries() uint64 {
	if c.MaxRetries < 0 {
		return 0
	}
	if c.MaxRetries == 0 {
		return 3
	}
	return uint64(c.MaxRetries)
}

// paymentLinkAPI is the slice of the SDK the provider calls.
type paymentLinkAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayProvider implements Provider using Razorpay payment links.
type RazorpayProvider struct {
	links  paymentLinkAPI
	config RazorpayConfig
	logger *slog.Logger
}

// NewRazorpayProvider creates a new Razorpay billing provider.
func NewRazorpayProvider(config RazorpayConfig, logger *slog.Logger) (*RazorpayProvider, error) {
	if config.KeyID == "" || config.KeySecret == "" {
		return nil, ErrInvalidAPIKey
	}

	client := razorpay.NewClient(config.KeyID, config.KeySecret)
	return &RazorpayProvider{
		links:  client.PaymentLink,
		config: config,
		logger: logger,
	}, nil
}

// CreatePaymentLink creates a hosted payment link.
//
// The SDK has no context support, so each attempt runs in its own goroutine
// and the call returns as soon as ctx or the configured timeout expires.
// ReferenceID makes a retried create fail rather than duplicate the link.
func (p *RazorpayProvider) CreatePaymentLink(ctx context.Context, params CreatePaymentLinkParams) (*PaymentLink, error) {
	if params.AmountMinor < MinAmountMinor {
		return nil, ErrAmountTooSmall
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	data := paymentLinkRequest(params)

	var resp map[string]interface{}
	attempt := 0
	operation := func() error {
		attempt++
		r, err := p.create(ctx, data)
		if err != nil {
			if ctx.Err() != nil || isRejected(err) {
				return backoff.Permanent(err)
			}
			p.logger.Warn("razorpay payment link attempt failed",
				"attempt", attempt,
				"reference_id", params.ReferenceID,
				"error", err,
			)
			return err
		}
		resp = r
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), p.config.maxRetries()),
		ctx,
	)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, &ProviderError{
			Op:            "create_payment_link",
			Message:       err.Error(),
			OriginalError: err,
		}
	}

	link, err := parsePaymentLink(resp)
	if err != nil {
		return nil, err
	}

	p.logger.Info("razorpay payment link created",
		"payment_link_id", link.ID,
		"reference_id", params.ReferenceID,
	)
	return link, nil
}

// isRejected reports a 4xx from Razorpay. Resending the same request
// cannot succeed, so only transport and server errors are retried.
func isRejected(err error) bool {
	var bad *rzperrors.BadRequestError
	return errors.As(err, &bad)
}

type createResult struct {
	resp map[string]interface{}
	err  error
}

func (p *RazorpayProvider) create(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	done := make(chan createResult, 1)
	go func() {
		resp, err := p.links.Create(data, nil)
		done <- createResult{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.resp, r.err
	}
}

// VerifyWebhookSignature verifies the X-Razorpay-Signature header.
func (p *RazorpayProvider) VerifyWebhookSignature(payload []byte, signature string, secret string) error {
	if secret == "" {
		secret = p.config.WebhookSecret
	}
	return VerifySignature(payload, signature, secret)
}

func paymentLinkRequest(params CreatePaymentLinkParams) map[string]interface{} {
	currency := params.Currency
	if currency == "" {
		currency = "INR"
	}

	notes := make(map[string]interface{}, len(params.Notes))
	for k, v := range params.Notes {
		notes[k] = v
	}

	customer := map[string]interface{}{
		"name":  params.Customer.Name,
		"email": params.Customer.Email,
	}
	if params.Customer.Phone != "" {
		customer["contact"] = params.Customer.Phone
	}

	data := map[string]interface{}{
		"amount":          params.AmountMinor,
		"currency":        currency,
		"accept_partial":  false,
		"description":     params.Description,
		"customer":        customer,
		"notify":          map[string]interface{}{"sms": false, "email": false},
		"reminder_enable": true,
		"notes":           notes,
	}
	if params.ReferenceID != "" {
		data["reference_id"] = params.ReferenceID
	}
	if params.CallbackURL != "" {
		data["callback_url"] = params.CallbackURL
		data["callback_method"] = "get"
	}
	return data
}

func parsePaymentLink(resp map[string]interface{}) (*PaymentLink, error) {
	id, _ := resp["id"].(string)
	url, _ := resp["short_url"].(string)
	if id == "" || url == "" {
		return nil, fmt.Errorf("%w: id=%q short_url=%q", ErrMalformedResponse, id, url)
	}

	link := &PaymentLink{ID: id, ShortURL: url, CreatedAt: time.Now()}
	if status, ok := resp["status"].(string); ok {
		link.Status = status
	}
	if created, ok := resp["created_at"].(float64); ok && created > 0 {
		link.CreatedAt = time.Unix(int64(created), 0)
	}
	return link, nil
}

// IsProviderError reports whether err came back from the Razorpay API.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
