package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/papertrail/internal/domain"
)

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, r)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return errObj["code"].(string)
}

func TestAuthHandler_Register(t *testing.T) {
	h := NewAuthHandler(&fakeAccounts{}, fakeTokens{})

	rec := serve(h.Register, jsonRequest(http.MethodPost, "/api/auth/register",
		`{"email":"owner@studio.in","password":"hunter22","businessName":"Studio"}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "token-owner@studio.in", body["token"])

	rec = serve(h.Register, jsonRequest(http.MethodPost, "/api/auth/register", `{"email":"owner@studio.in"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decodeBody(t, rec)["error"].(map[string]any)["fields"].(map[string]any)
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields, "businessName")
}

func TestAuthHandler_Login(t *testing.T) {
	accounts := &fakeAccounts{err: domain.ErrInvalidCredentials}
	h := NewAuthHandler(accounts, fakeTokens{})

	rec := serve(h.Login, jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"a@b.in","password":"nope"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, domain.EUNAUTHORIZED, errorCode(t, rec))

	accounts.err = nil
	accounts.user = &domain.User{ID: testOwner, Email: "a@b.in"}
	rec = serve(h.Login, jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"a@b.in","password":"hunter22"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "token-a@b.in", decodeBody(t, rec)["token"])
}

func TestAuthHandler_Me(t *testing.T) {
	h := NewAuthHandler(&fakeAccounts{user: &domain.User{ID: testOwner, Email: "owner@studio.in", PasswordHash: "secret"}}, fakeTokens{})

	rec := serve(h.Me, asOwner(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
	user := decodeBody(t, rec)["user"].(map[string]any)
	assert.Equal(t, "owner@studio.in", user["email"])
}

func TestClientHandler(t *testing.T) {
	existing := domain.Client{ID: uuid.New(), OwnerID: testOwner, Name: "Asha", Email: "asha@example.com"}
	clients := newFakeClients(existing)
	h := NewClientHandler(clients)

	t.Run("list", func(t *testing.T) {
		rec := serve(h.List, asOwner(httptest.NewRequest(http.MethodGet, "/api/clients", nil)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "asha@example.com")
	})

	t.Run("get missing", func(t *testing.T) {
		r := asOwner(httptest.NewRequest(http.MethodGet, "/api/clients/x", nil))
		r.SetPathValue("id", uuid.NewString())
		rec := serve(h.Get, r)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("get bad id", func(t *testing.T) {
		r := asOwner(httptest.NewRequest(http.MethodGet, "/api/clients/x", nil))
		r.SetPathValue("id", "not-a-uuid")
		rec := serve(h.Get, r)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("create", func(t *testing.T) {
		rec := serve(h.Create, asOwner(jsonRequest(http.MethodPost, "/api/clients", `{"name":"Bharat","email":"b@shop.in"}`)))
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "Bharat", decodeBody(t, rec)["name"])
	})

	t.Run("create invalid email", func(t *testing.T) {
		rec := serve(h.Create, asOwner(jsonRequest(http.MethodPost, "/api/clients", `{"name":"Bharat","email":"nope"}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, domain.EINVALID, errorCode(t, rec))
	})

	t.Run("delete with invoices", func(t *testing.T) {
		clients.err = domain.ErrClientHasInvoices
		defer func() { clients.err = nil }()

		r := asOwner(httptest.NewRequest(http.MethodDelete, "/api/clients/x", nil))
		r.SetPathValue("id", existing.ID.String())
		rec := serve(h.Delete, r)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		r := asOwner(httptest.NewRequest(http.MethodDelete, "/api/clients/x", nil))
		r.SetPathValue("id", existing.ID.String())
		rec := serve(h.Delete, r)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []uuid.UUID{existing.ID}, clients.deleted)
	})
}

func TestInvoiceHandler_List(t *testing.T) {
	invoices := &fakeInvoices{}
	h := NewInvoiceHandler(invoices, &fakeBulk{}, 0)

	rec := serve(h.List, asOwner(httptest.NewRequest(http.MethodGet, "/api/invoices?page=2&limit=5&status=paid&search=%20INV%20", nil)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.InvoiceFilter{Page: 2, Limit: 5, Status: domain.InvoiceStatusPaid, Search: "INV"}, invoices.filter)

	rec = serve(h.List, asOwner(httptest.NewRequest(http.MethodGet, "/api/invoices?status=all", nil)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, invoices.filter.Status)

	rec = serve(h.List, asOwner(httptest.NewRequest(http.MethodGet, "/api/invoices?status=void", nil)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvoiceHandler_Create(t *testing.T) {
	invoices := &fakeInvoices{invoice: &domain.Invoice{ID: uuid.New(), InvoiceNumber: "INV-0001"}}
	h := NewInvoiceHandler(invoices, &fakeBulk{}, 0)
	clientID := uuid.New()

	body := `{"clientId":"` + clientID.String() + `","dueDate":"2026-04-01T00:00:00Z",
		"items":[{"description":"Design","quantity":2,"unitPrice":"100"}],"taxRate":"18"}`
	rec := serve(h.Create, asOwner(jsonRequest(http.MethodPost, "/api/invoices", body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "INV-0001", decodeBody(t, rec)["invoiceNumber"])
	assert.Equal(t, clientID, invoices.created.ClientID)
	require.NotNil(t, invoices.created.TaxRate)
	assert.True(t, decimal.NewFromInt(18).Equal(*invoices.created.TaxRate))

	rec = serve(h.Create, asOwner(jsonRequest(http.MethodPost, "/api/invoices",
		`{"clientId":"`+clientID.String()+`","dueDate":"2026-04-01T00:00:00Z","items":[{"quantity":0}]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decodeBody(t, rec)["error"].(map[string]any)["fields"].(map[string]any)
	assert.Contains(t, fields, "items[0].description")
	assert.Contains(t, fields, "items[0].quantity")
}

func TestInvoiceHandler_PDF(t *testing.T) {
	invoices := &fakeInvoices{
		invoice: &domain.Invoice{ID: uuid.New(), InvoiceNumber: "INV-0042"},
		pdf:     []byte("%PDF-1.3 fake"),
	}
	h := NewInvoiceHandler(invoices, &fakeBulk{}, 0)

	r := asOwner(httptest.NewRequest(http.MethodGet, "/api/invoices/x/pdf", nil))
	r.SetPathValue("id", invoices.invoice.ID.String())
	rec := serve(h.PDF, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=invoice-INV-0042.pdf", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, invoices.pdf, rec.Body.Bytes())
}

func TestInvoiceHandler_SendEmail(t *testing.T) {
	invoices := &fakeInvoices{}
	h := NewInvoiceHandler(invoices, &fakeBulk{}, 0)
	id := uuid.NewString()

	r := asOwner(httptest.NewRequest(http.MethodPost, "/api/invoices/x/send-email", nil))
	r.SetPathValue("id", id)
	rec := serve(h.SendEmail, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, invoices.sent)
	assert.Empty(t, invoices.sent.RecipientEmail)

	r = asOwner(jsonRequest(http.MethodPost, "/api/invoices/x/send-email", `{"recipientEmail":"ap@client.in","subject":"Due"}`))
	r.SetPathValue("id", id)
	rec = serve(h.SendEmail, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ap@client.in", invoices.sent.RecipientEmail)

	invoices.err = domain.External(errors.New("smtp down"), "invoice.send", "Failed to send email")
	r = asOwner(httptest.NewRequest(http.MethodPost, "/api/invoices/x/send-email", nil))
	r.SetPathValue("id", id)
	rec = serve(h.SendEmail, r)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func multipartRequest(t *testing.T, target string, fields map[string]string, fileField, filename, contentType string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{`form-data; name="` + fileField + `"; filename="` + filename + `"`}
		header["Content-Type"] = []string{contentType}
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, target, &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return asOwner(r)
}

func TestInvoiceHandler_BulkUpload(t *testing.T) {
	csv := "Client Email,Client Name,Item Description,Quantity,Unit Price\n" +
		"a@shop.in,Asha,Design,2,100\n" +
		",Nobody,Orphan,1,5\n" +
		"b@shop.in,Bharat,Audit,1,99.50\n"

	bulk := &fakeBulk{}
	h := NewInvoiceHandler(&fakeInvoices{}, bulk, 0)

	rec := serve(h.BulkUpload, multipartRequest(t, "/api/invoices/bulk-upload",
		map[string]string{"templateId": "3"}, "csvFile", "batch.csv", "text/csv", []byte(csv)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3, bulk.templateID)
	require.Len(t, bulk.drafts, 2)
	assert.Equal(t, "a@shop.in", bulk.drafts[0].Client.Email)

	var result domain.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Successful)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Row)
}

func TestInvoiceHandler_BulkUploadRejects(t *testing.T) {
	h := NewInvoiceHandler(&fakeInvoices{}, &fakeBulk{}, 0)

	rec := serve(h.BulkUpload, multipartRequest(t, "/api/invoices/bulk-upload", map[string]string{"templateId": "1"}, "", "", "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h = NewInvoiceHandler(&fakeInvoices{}, &fakeBulk{}, 64)
	big := bytes.Repeat([]byte("a@shop.in,Asha,Design,1,1\n"), 20)
	rec = serve(h.BulkUpload, multipartRequest(t, "/api/invoices/bulk-upload", nil, "csvFile", "big.csv", "text/csv", big))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSettingsHandler_UpdateBusinessMultipart(t *testing.T) {
	accounts := &fakeAccounts{user: &domain.User{ID: testOwner}}
	h := NewSettingsHandler(accounts)
	png := []byte("\x89PNG\r\n\x1a\nfake")

	rec := serve(h.UpdateBusiness, multipartRequest(t, "/api/settings/business", map[string]string{
		"businessName":   "Studio Ten",
		"gstin":          "29ABCDE1234F1Z5",
		"defaultTaxRate": "12",
		"address.city":   "Bengaluru",
	}, "logo", "logo.png", "image/png", png))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := accounts.business
	assert.Equal(t, "Studio Ten", got.BusinessName)
	assert.Equal(t, "Bengaluru", got.Address.City)
	require.NotNil(t, got.DefaultTaxRate)
	assert.Equal(t, "12", got.DefaultTaxRate.String())
	require.NotNil(t, got.Logo)
	assert.Equal(t, "logo.png", got.Logo.Filename)
	assert.Equal(t, "image/png", got.Logo.ContentType)
	assert.Equal(t, png, got.Logo.Content)
}

func TestSettingsHandler_UpdateBusinessValidation(t *testing.T) {
	h := NewSettingsHandler(&fakeAccounts{user: &domain.User{}})

	rec := serve(h.UpdateBusiness, multipartRequest(t, "/api/settings/business",
		map[string]string{"businessName": "Studio", "defaultTaxRate": "lots"}, "", "", "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h.UpdateBusiness, asOwner(jsonRequest(http.MethodPut, "/api/settings/business", `{"phone":"123"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsHandler_Notifications(t *testing.T) {
	accounts := &fakeAccounts{user: &domain.User{}}
	h := NewSettingsHandler(accounts)

	rec := serve(h.UpdateNotifications, asOwner(jsonRequest(http.MethodPut, "/api/settings/notifications", `{"reminderDays":3}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.NotificationSettings{EmailNotifications: true, ReminderDays: 3}, accounts.notifications)

	rec = serve(h.UpdateNotifications, asOwner(jsonRequest(http.MethodPut, "/api/settings/notifications",
		`{"emailNotifications":false,"smsNotifications":true}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.NotificationSettings{SMSNotifications: true}, accounts.notifications)
}

func TestSettingsHandler_Tax(t *testing.T) {
	accounts := &fakeAccounts{user: &domain.User{}}
	h := NewSettingsHandler(accounts)

	rec := serve(h.UpdateTax, asOwner(jsonRequest(http.MethodPut, "/api/settings/tax", `{"defaultTaxRate":"5.5"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5.5", accounts.taxRate.String())

	accounts.err = domain.ErrInvalidTaxRate
	rec = serve(h.UpdateTax, asOwner(jsonRequest(http.MethodPut, "/api/settings/tax", `{"defaultTaxRate":"101"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardHandler(t *testing.T) {
	dash := &fakeDashboard{}
	h := NewDashboardHandler(dash)

	rec := serve(h.Stats, asOwner(httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, decodeBody(t, rec)["totalInvoices"])

	rec = serve(h.Analytics, asOwner(httptest.NewRequest(http.MethodGet, "/api/dashboard/analytics?period=year", nil)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PeriodYear, dash.period)
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	rec := serve(Health(fakePinger{}), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])

	rec = serve(Health(fakePinger{err: errors.New("down")}), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decodeBody(t, rec)["status"])
}
