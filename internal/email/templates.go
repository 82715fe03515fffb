package email

import "fmt"

// EmailTemplate defines the interface for email templates
type EmailTemplate interface {
	Subject() string
	TemplateName() string
}

// InvoiceEmail is the message sent to a client with an invoice attached.
type InvoiceEmail struct {
	To            string
	ReplyTo       string
	BusinessName  string
	ClientName    string
	InvoiceNumber string
	Total         string // already formatted, e.g. "₹283.20"
	DueDate       string
	Message       string
	PaymentURL    string

	// SubjectLine overrides the default subject when set.
	SubjectLine string

	PDF []byte
}

func (e InvoiceEmail) Subject() string {
	if e.SubjectLine != "" {
		return e.SubjectLine
	}
	return fmt.Sprintf("Invoice %s from %s", e.InvoiceNumber, e.BusinessName)
}

func (e InvoiceEmail) TemplateName() string {
	return "invoice.html"
}

// AttachmentName is the filename the PDF is sent under.
func (e InvoiceEmail) AttachmentName() string {
	return fmt.Sprintf("invoice-%s.pdf", e.InvoiceNumber)
}
