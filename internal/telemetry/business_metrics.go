package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for invoicing activity.
// Every recording method is safe on a nil receiver so tests and tools can
// run without registering collectors.
type BusinessMetrics struct {
	// Invoices
	InvoicesCreated *prometheus.CounterVec
	InvoiceValue    *prometheus.HistogramVec
	InvoicesPaid    prometheus.Counter
	InvoicesOverdue prometheus.Counter

	// Bulk upload
	BulkUploads    *prometheus.CounterVec
	BulkRows       prometheus.Histogram
	BulkNewClients prometheus.Counter

	// Payment links
	PaymentLinksCreated prometheus.Counter
	PaymentLinksFailed  prometheus.Counter
	RazorpayAPILatency  prometheus.Histogram

	// Webhooks
	WebhookReceived *prometheus.CounterVec
	WebhookFailed   *prometheus.CounterVec
	WebhookLatency  *prometheus.HistogramVec

	// Accounts
	Signups     prometheus.Counter
	Logins      prometheus.Counter
	LoginFailed prometheus.Counter

	// Email delivery
	EmailSent   prometheus.Counter
	EmailFailed prometheus.Counter
}

// NewBusinessMetrics creates and registers all business metrics
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	return newBusinessMetrics(promauto.With(prometheus.DefaultRegisterer), namespace)
}

func newBusinessMetrics(f promauto.Factory, namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "papertrail"
	}

	subsystem := "business"

	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}

	return &BusinessMetrics{
		// =======================================================================
		// Invoices
		// =======================================================================
		InvoicesCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "invoices_created_total",
				Help:      "Total invoices created",
			},
			[]string{"source"}, // source: single, bulk
		),
		InvoiceValue: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "invoice_value_rupees",
				Help:      "Invoice grand total in rupees",
				Buckets:   []float64{500, 1000, 5000, 10000, 50000, 100000, 500000},
			},
			[]string{"source"},
		),
		InvoicesPaid:    counter("invoices_paid_total", "Invoices marked paid by payment webhooks"),
		InvoicesOverdue: counter("invoices_overdue_total", "Invoices moved to overdue by the sweeper"),

		// =======================================================================
		// Bulk upload
		// =======================================================================
		BulkUploads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "bulk_upload_groups_total",
				Help:      "Client groups processed by bulk upload",
			},
			[]string{"outcome"}, // outcome: success, failure
		),
		BulkRows: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bulk_upload_rows",
			Help:      "Rows per uploaded CSV",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
		}),
		BulkNewClients: counter("bulk_upload_new_clients_total", "Clients created by bulk upload"),

		// =======================================================================
		// Payment links
		// =======================================================================
		PaymentLinksCreated: counter("payment_links_created_total", "Payment links created"),
		PaymentLinksFailed:  counter("payment_links_failed_total", "Payment link creation failures"),
		RazorpayAPILatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "razorpay_api_latency_seconds",
			Help:      "Latency of payment link creation",
			Buckets:   prometheus.DefBuckets,
		}),

		// =======================================================================
		// Webhooks
		// =======================================================================
		WebhookReceived: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_received_total",
				Help:      "Webhook deliveries received",
			},
			[]string{"event"},
		),
		WebhookFailed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_failed_total",
				Help:      "Webhook deliveries rejected or failed",
			},
			[]string{"reason"}, // reason: signature, payload, storage
		),
		WebhookLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_latency_seconds",
				Help:      "Webhook processing time",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"event"},
		),

		// =======================================================================
		// Accounts
		// =======================================================================
		Signups:     counter("signups_total", "Accounts registered"),
		Logins:      counter("logins_total", "Successful logins"),
		LoginFailed: counter("login_failed_total", "Failed login attempts"),

		// =======================================================================
		// Email
		// =======================================================================
		EmailSent:   counter("emails_sent_total", "Invoice emails sent"),
		EmailFailed: counter("emails_failed_total", "Invoice emails that failed to send"),
	}
}

// Business is the global business metrics instance
var Business *BusinessMetrics

// InitBusinessMetrics initializes the global business metrics instance
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace)
	return Business
}

// RecordInvoiceCreated counts an invoice and observes its total.
func (m *BusinessMetrics) RecordInvoiceCreated(source string, total float64) {
	if m == nil {
		return
	}
	m.InvoicesCreated.WithLabelValues(source).Inc()
	m.InvoiceValue.WithLabelValues(source).Observe(total)
}

// RecordBulkUpload records the outcome of one upload.
func (m *BusinessMetrics) RecordBulkUpload(rows, successful, failed, newClients int) {
	if m == nil {
		return
	}
	m.BulkRows.Observe(float64(rows))
	m.BulkUploads.WithLabelValues("success").Add(float64(successful))
	m.BulkUploads.WithLabelValues("failure").Add(float64(failed))
	m.BulkNewClients.Add(float64(newClients))
}

// RecordPaymentLink records one payment link attempt.
func (m *BusinessMetrics) RecordPaymentLink(started time.Time, err error) {
	if m == nil {
		return
	}
	m.RazorpayAPILatency.Observe(time.Since(started).Seconds())
	if err != nil {
		m.PaymentLinksFailed.Inc()
		return
	}
	m.PaymentLinksCreated.Inc()
}

// RecordWebhook records a processed webhook delivery.
func (m *BusinessMetrics) RecordWebhook(event string, started time.Time) {
	if m == nil {
		return
	}
	m.WebhookReceived.WithLabelValues(event).Inc()
	m.WebhookLatency.WithLabelValues(event).Observe(time.Since(started).Seconds())
}

// RecordWebhookFailure records a rejected delivery.
func (m *BusinessMetrics) RecordWebhookFailure(reason string) {
	if m == nil {
		return
	}
	m.WebhookFailed.WithLabelValues(reason).Inc()
}

// RecordInvoicePaid counts a paid transition.
func (m *BusinessMetrics) RecordInvoicePaid() {
	if m == nil {
		return
	}
	m.InvoicesPaid.Inc()
}

// RecordOverdue counts invoices moved to overdue.
func (m *BusinessMetrics) RecordOverdue(n int) {
	if m == nil {
		return
	}
	m.InvoicesOverdue.Add(float64(n))
}

// RecordLogin counts a login attempt.
func (m *BusinessMetrics) RecordLogin(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.Logins.Inc()
		return
	}
	m.LoginFailed.Inc()
}

// RecordSignup counts a registration.
func (m *BusinessMetrics) RecordSignup() {
	if m == nil {
		return
	}
	m.Signups.Inc()
}

// RecordEmail counts an email attempt.
func (m *BusinessMetrics) RecordEmail(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.EmailFailed.Inc()
		return
	}
	m.EmailSent.Inc()
}
