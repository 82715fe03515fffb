// Package pdf draws invoices to A4 PDF documents.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/papertrail/internal/domain"
)

// layout is one of the selectable invoice designs.
type layout struct {
	name   string
	accent [3]int
	font   string

	// banner fills the header with the accent colour.
	banner bool
	// centered puts the business name in the middle of the header.
	centered bool
	// striped shades alternate item rows.
	striped bool
}

var layouts = [domain.TemplateCount]layout{
	{name: "Classic", accent: [3]int{37, 99, 235}, font: "Arial"},
	{name: "Modern", accent: [3]int{16, 185, 129}, font: "Helvetica", banner: true},
	{name: "Minimal", accent: [3]int{55, 65, 81}, font: "Helvetica"},
	{name: "Elegant", accent: [3]int{124, 58, 237}, font: "Times", centered: true},
	{name: "Bold", accent: [3]int{220, 38, 38}, font: "Arial", banner: true, striped: true},
}

// LayoutName returns the display name of a template.
func LayoutName(templateID int) string {
	return pick(templateID).name
}

func pick(templateID int) layout {
	if templateID < 1 || templateID > domain.TemplateCount {
		templateID = domain.DefaultTemplateID
	}
	return layouts[templateID-1]
}

// Renderer draws invoices.
type Renderer struct {
	// Currency is printed before every amount. The core PDF fonts have no
	// rupee glyph.
	Currency string
}

// NewRenderer returns a renderer that prefixes amounts with "Rs.".
func NewRenderer() *Renderer {
	return &Renderer{Currency: "Rs."}
}

// Render returns the PDF bytes for inv as issued by owner.
// inv.Client should be populated; a missing client prints only the ID.
func (r *Renderer) Render(inv *domain.Invoice, owner *domain.User) ([]byte, error) {
	if inv == nil || owner == nil {
		return nil, fmt.Errorf("pdf: invoice and owner are required")
	}

	l := pick(inv.TemplateID)

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Invoice %s", inv.InvoiceNumber), true)
	pdf.SetCreator("papertrail", true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	d := drawer{pdf: pdf, tr: tr, l: l, currency: r.Currency}
	d.header(inv, owner)
	d.parties(inv, owner)
	d.items(inv.Items)
	d.totals(inv)
	d.footer(inv)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type drawer struct {
	pdf      *gofpdf.Fpdf
	tr       func(string) string
	l        layout
	currency string
}

func (d drawer) money(v decimal.Decimal) string {
	return d.currency + " " + v.StringFixed(2)
}

func (d drawer) accentText() {
	d.pdf.SetTextColor(d.l.accent[0], d.l.accent[1], d.l.accent[2])
}

func (d drawer) plainText() {
	d.pdf.SetTextColor(31, 41, 55)
}

func (d drawer) header(inv *domain.Invoice, owner *domain.User) {
	pdf := d.pdf
	align := "L"
	if d.l.centered {
		align = "C"
	}

	if d.l.banner {
		pdf.SetFillColor(d.l.accent[0], d.l.accent[1], d.l.accent[2])
		pdf.Rect(0, 0, 210, 32, "F")
		pdf.SetTextColor(255, 255, 255)
	} else {
		d.accentText()
	}

	pdf.SetXY(10, 10)
	pdf.SetFont(d.l.font, "B", 18)
	pdf.CellFormat(190, 10, d.tr(owner.BusinessName), "", 1, align, false, 0, "")
	pdf.SetFont(d.l.font, "", 10)
	pdf.CellFormat(190, 6, d.tr(fmt.Sprintf("INVOICE %s", inv.InvoiceNumber)), "", 1, align, false, 0, "")

	d.plainText()
	pdf.SetY(40)
	pdf.SetFont(d.l.font, "", 10)
	pdf.Cell(95, 6, fmt.Sprintf("Issued: %s", inv.CreatedAt.Format("02 Jan 2006")))
	pdf.CellFormat(95, 6, fmt.Sprintf("Due: %s", inv.DueDate.Format("02 Jan 2006")), "", 1, "R", false, 0, "")
	pdf.CellFormat(190, 6, fmt.Sprintf("Status: %s", strings.ToUpper(string(inv.Status))), "", 1, "R", false, 0, "")
	pdf.Ln(4)
}

func (d drawer) parties(inv *domain.Invoice, owner *domain.User) {
	pdf := d.pdf
	top := pdf.GetY()

	pdf.SetFont(d.l.font, "B", 11)
	d.accentText()
	pdf.Cell(95, 7, "From")
	pdf.Ln(7)
	d.plainText()
	pdf.SetFont(d.l.font, "", 10)
	for _, line := range partyLines(owner.BusinessName, owner.Email, owner.Phone, owner.Address, owner.GSTIN) {
		pdf.Cell(95, 5, d.tr(line))
		pdf.Ln(5)
	}
	leftBottom := pdf.GetY()

	pdf.SetXY(105, top)
	pdf.SetFont(d.l.font, "B", 11)
	d.accentText()
	pdf.Cell(95, 7, "Bill To")
	pdf.SetXY(105, top+7)
	d.plainText()
	pdf.SetFont(d.l.font, "", 10)

	var lines []string
	if c := inv.Client; c != nil {
		lines = partyLines(c.Name, c.Email, c.Phone, c.Address, c.GSTIN)
	} else {
		lines = []string{inv.ClientID.String()}
	}
	for _, line := range lines {
		pdf.Cell(95, 5, d.tr(line))
		pdf.SetXY(105, pdf.GetY()+5)
	}

	pdf.SetX(10)
	pdf.SetY(max(leftBottom, pdf.GetY()) + 6)
}

func partyLines(name, email, phone string, a domain.Address, gstin string) []string {
	lines := []string{name}
	if a.Street != "" {
		lines = append(lines, a.Street)
	}
	cityLine := strings.TrimSpace(strings.Join(nonEmpty(a.City, a.State, a.Pincode), ", "))
	if cityLine != "" {
		lines = append(lines, cityLine)
	}
	if a.Country != "" {
		lines = append(lines, a.Country)
	}
	if email != "" {
		lines = append(lines, email)
	}
	if phone != "" {
		lines = append(lines, "Phone: "+phone)
	}
	if gstin != "" {
		lines = append(lines, "GSTIN: "+gstin)
	}
	return lines
}

func nonEmpty(parts ...string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var itemColumns = []struct {
	title string
	width float64
	align string
}{
	{"Description", 80, "L"},
	{"Qty", 20, "C"},
	{"Unit Price", 30, "R"},
	{"Discount", 30, "R"},
	{"Amount", 30, "R"},
}

func (d drawer) items(items []domain.LineItem) {
	pdf := d.pdf

	pdf.SetFont(d.l.font, "B", 10)
	pdf.SetFillColor(d.l.accent[0], d.l.accent[1], d.l.accent[2])
	pdf.SetTextColor(255, 255, 255)
	for i, col := range itemColumns {
		ln := 0
		if i == len(itemColumns)-1 {
			ln = 1
		}
		pdf.CellFormat(col.width, 8, col.title, "1", ln, col.align, true, 0, "")
	}

	d.plainText()
	pdf.SetFont(d.l.font, "", 9)
	pdf.SetFillColor(243, 244, 246)
	for n, item := range items {
		fill := d.l.striped && n%2 == 1
		cells := []string{
			d.tr(item.Description),
			fmt.Sprintf("%d", item.Quantity),
			d.money(item.UnitPrice),
			d.money(item.Discount),
			d.money(item.Total),
		}
		for i, col := range itemColumns {
			ln := 0
			if i == len(itemColumns)-1 {
				ln = 1
			}
			txt := cells[i]
			if i == 0 {
				txt = d.fit(txt, col.width-2)
			}
			pdf.CellFormat(col.width, 7, txt, "1", ln, col.align, fill, 0, "")
		}
	}
	pdf.Ln(4)
}

// fit shortens s with an ellipsis until it fits width.
func (d drawer) fit(s string, width float64) string {
	if d.pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && d.pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

func (d drawer) totals(inv *domain.Invoice) {
	pdf := d.pdf
	row := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont(d.l.font, style, 10)
		pdf.SetX(110)
		pdf.CellFormat(50, 7, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, value, "", 1, "R", false, 0, "")
	}

	row("Subtotal:", d.money(inv.Subtotal), false)
	row(fmt.Sprintf("GST (%s%%):", inv.TaxRate.String()), d.money(inv.TaxAmount), false)
	d.accentText()
	row("Total:", d.money(inv.Total), true)
	d.plainText()
	pdf.Ln(6)
}

func (d drawer) footer(inv *domain.Invoice) {
	pdf := d.pdf

	if inv.Notes != "" {
		pdf.SetFont(d.l.font, "B", 10)
		pdf.Cell(190, 6, "Notes")
		pdf.Ln(6)
		pdf.SetFont(d.l.font, "", 9)
		pdf.MultiCell(190, 5, d.tr(inv.Notes), "", "L", false)
		pdf.Ln(4)
	}

	if inv.PaymentLink != nil && inv.PaymentLink.URL != "" && inv.Status != domain.InvoiceStatusPaid {
		pdf.SetFont(d.l.font, "B", 10)
		d.accentText()
		pdf.Cell(30, 6, "Pay online:")
		pdf.SetFont(d.l.font, "U", 10)
		pdf.CellFormat(160, 6, inv.PaymentLink.URL, "", 1, "L", false, 0, inv.PaymentLink.URL)
		d.plainText()
	}

	if inv.Payment != nil {
		pdf.SetFont(d.l.font, "", 9)
		pdf.Cell(190, 6, fmt.Sprintf("Paid %s on %s via %s (%s)",
			d.money(inv.Payment.Amount), inv.Payment.PaidAt.Format("02 Jan 2006"),
			inv.Payment.Method, inv.Payment.PaymentID))
		pdf.Ln(6)
	}
}
