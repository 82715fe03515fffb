package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/papertrail/internal/domain"
	"github.com/dukerupert/papertrail/internal/handler"
	"github.com/dukerupert/papertrail/internal/service"
)

// ErrNoCSVFile is returned when a bulk upload has no csvFile part.
var ErrNoCSVFile = &domain.Error{Code: domain.EINVALID, Message: "No CSV file uploaded"}

// DefaultMaxUploadBytes bounds a bulk upload when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

// InvoiceHandler serves /api/invoices.
type InvoiceHandler struct {
	invoices       domain.InvoiceService
	bulk           domain.BulkUploadService
	maxUploadBytes int64
}

// NewInvoiceHandler creates a new invoice handler. maxUploadBytes of zero
// uses DefaultMaxUploadBytes.
func NewInvoiceHandler(invoices domain.InvoiceService, bulk domain.BulkUploadService, maxUploadBytes int64) *InvoiceHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &InvoiceHandler{invoices: invoices, bulk: bulk, maxUploadBytes: maxUploadBytes}
}

// List handles GET /api/invoices?page=&limit=&status=&search=
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.InvoiceFilter{
		Search: strings.TrimSpace(q.Get("search")),
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	if status := q.Get("status"); status != "" && status != "all" {
		filter.Status = domain.InvoiceStatus(status)
		if !filter.Status.Valid() {
			handler.ErrorResponse(w, r, domain.ErrInvalidStatus)
			return
		}
	}

	page, err := h.invoices.List(r.Context(), domain.RequireOwnerID(r.Context()), filter)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, page)
}

// Get handles GET /api/invoices/{id}
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	inv, err := h.invoices.Get(r.Context(), domain.RequireOwnerID(r.Context()), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, inv)
}

// Create handles POST /api/invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateInvoiceParams
	if err := handler.Decode(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}

	inv, err := h.invoices.Create(r.Context(), domain.RequireOwnerID(r.Context()), req)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, inv)
}

// Update handles PUT /api/invoices/{id}
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req domain.UpdateInvoiceParams
	if err := handler.Decode(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}

	inv, err := h.invoices.Update(r.Context(), domain.RequireOwnerID(r.Context()), id, req)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, inv)
}

// Delete handles DELETE /api/invoices/{id}
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := h.invoices.Delete(r.Context(), domain.RequireOwnerID(r.Context()), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Message(w, http.StatusOK, "Invoice deleted successfully")
}

// PDF handles GET /api/invoices/{id}/pdf
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	inv, doc, err := h.invoices.RenderPDF(r.Context(), domain.RequireOwnerID(r.Context()), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", inv.InvoiceNumber))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// SendEmail handles POST /api/invoices/{id}/send-email. The body is
// optional; recipient and subject default from the invoice.
func (h *InvoiceHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req domain.SendInvoiceParams
	if r.ContentLength != 0 {
		if err := handler.Decode(r, &req); err != nil && !errors.Is(err, handler.ErrEmptyBody) {
			handler.ValidationErrorResponse(w, r, err)
			return
		}
	}

	if err := h.invoices.Send(r.Context(), domain.RequireOwnerID(r.Context()), id, req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Message(w, http.StatusOK, "Invoice sent successfully")
}

// BulkUpload handles POST /api/invoices/bulk-upload with a multipart
// "csvFile" part and optional "templateId". Per-row problems come back in
// the 200 result; only an unreadable request fails the call.
func (h *InvoiceHandler) BulkUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handler.ErrorResponse(w, r, domain.Errorf(domain.ETOOLARGE, "invoice.bulk_upload", "CSV file is too large"))
			return
		}
		handler.ErrorResponse(w, r, ErrNoCSVFile)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("csvFile")
	if err != nil {
		handler.ErrorResponse(w, r, ErrNoCSVFile)
		return
	}
	defer file.Close()

	templateID, err := strconv.Atoi(r.FormValue("templateId"))
	if err != nil || templateID == 0 {
		templateID = domain.DefaultTemplateID
	}

	result, err := service.ImportCSV(r.Context(), h.bulk, domain.RequireOwnerID(r.Context()), templateID, file)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, result)
}
