// Package csvimport parses bulk-upload CSV files and groups their rows into
// one invoice draft per client email.
//
// Expected header (missing optional columns are tolerated):
//
//	Client Email, Client Name, Client Phone, Client Street, Client City,
//	Client State, Client Pincode, Client GSTIN, Due Date, Notes,
//	Item Description, Quantity, Unit Price, Discount
package csvimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/papertrail/internal/domain"
)

// ErrEmptyFile is returned when the upload has no header or no data rows.
var ErrEmptyFile = &domain.Error{Code: domain.EINVALID, Message: "CSV file is empty"}

// Record is one CSV data row exactly as written in the file.
type Record struct {
	ClientEmail     string `csv:"Client Email"`
	ClientName      string `csv:"Client Name"`
	ClientPhone     string `csv:"Client Phone"`
	ClientStreet    string `csv:"Client Street"`
	ClientCity      string `csv:"Client City"`
	ClientState     string `csv:"Client State"`
	ClientPincode   string `csv:"Client Pincode"`
	ClientGSTIN     string `csv:"Client GSTIN"`
	DueDate         string `csv:"Due Date"`
	Notes           string `csv:"Notes"`
	ItemDescription string `csv:"Item Description"`
	Quantity        string `csv:"Quantity"`
	UnitPrice       string `csv:"Unit Price"`
	Discount        string `csv:"Discount"`
}

// Row is a Record after trimming and numeric conversion.
type Row struct {
	// Line is the spreadsheet row number; the header is line 1.
	Line int

	Email   string
	Client  domain.ClientParams
	DueDate string
	Notes   string
	Item    domain.LineItemInput
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse reads every data row from r. The whole file is materialized before
// grouping so grouping stays pure.
func Parse(r io.Reader) ([]Row, error) {
	const op = "csvimport.parse"

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read CSV")
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	// Short rows are allowed; their trailing columns read as blank.
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records []*Record
	if err := gocsv.UnmarshalCSV(reader, &records); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, ErrEmptyFile
		}
		return nil, domain.WrapError(err, domain.EINVALID, op, "CSV file could not be parsed")
	}

	rows := make([]Row, len(records))
	for i, rec := range records {
		rows[i] = toRow(i+2, rec)
	}
	return rows, nil
}

func toRow(line int, rec *Record) Row {
	email := strings.ToLower(strings.TrimSpace(rec.ClientEmail))
	return Row{
		Line:  line,
		Email: email,
		Client: domain.ClientParams{
			Name:  strings.TrimSpace(rec.ClientName),
			Email: email,
			Phone: strings.TrimSpace(rec.ClientPhone),
			Address: domain.Address{
				Street:  strings.TrimSpace(rec.ClientStreet),
				City:    strings.TrimSpace(rec.ClientCity),
				State:   strings.TrimSpace(rec.ClientState),
				Pincode: strings.TrimSpace(rec.ClientPincode),
				Country: domain.DefaultCountry,
			},
			GSTIN: strings.TrimSpace(rec.ClientGSTIN),
		},
		DueDate: strings.TrimSpace(rec.DueDate),
		Notes:   strings.TrimSpace(rec.Notes),
		Item: domain.LineItemInput{
			Description: strings.TrimSpace(rec.ItemDescription),
			Quantity:    parseQuantity(rec.Quantity),
			UnitPrice:   parseAmount(rec.UnitPrice),
			Discount:    parseAmount(rec.Discount),
		},
	}
}

// parseQuantity reads a whole number. Fractions are truncated; blank,
// garbage and zero all mean 1.
func parseQuantity(raw string) int {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	if err != nil {
		d, derr := decimal.NewFromString(raw)
		if derr != nil {
			return 1
		}
		n = int(d.IntPart())
	}
	if n == 0 {
		return 1
	}
	return n
}

// parseAmount reads a money value, ignoring thousands separators.
// Anything unparsable is zero.
func parseAmount(raw string) decimal.Decimal {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
