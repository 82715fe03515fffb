package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/papertrail/internal/domain"
	"github.com/dukerupert/papertrail/internal/handler"
	"github.com/dukerupert/papertrail/internal/service"
)

// maxSettingsForm bounds the business settings form including the logo.
const maxSettingsForm = service.MaxLogoSize + 1<<20

// SettingsHandler serves /api/settings.
type SettingsHandler struct {
	accounts domain.AccountService
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(accounts domain.AccountService) *SettingsHandler {
	return &SettingsHandler{accounts: accounts}
}

// Get handles GET /api/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Get(r.Context(), domain.RequireOwnerID(r.Context()))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, user)
}

// UpdateBusiness handles PUT /api/settings/business. It accepts a
// multipart form with an optional "logo" file, or a JSON body without one.
func (h *SettingsHandler) UpdateBusiness(w http.ResponseWriter, r *http.Request) {
	var (
		params domain.BusinessParams
		err    error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		params, err = businessFromForm(w, r)
		if err == nil {
			err = handler.Validate(params)
		}
	} else {
		err = handler.Decode(r, &params)
	}
	if err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}

	user, err := h.accounts.UpdateBusiness(r.Context(), domain.RequireOwnerID(r.Context()), params)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, user)
}

func businessFromForm(w http.ResponseWriter, r *http.Request) (domain.BusinessParams, error) {
	const op = "settings.business_form"

	r.Body = http.MaxBytesReader(w, r.Body, maxSettingsForm)
	if err := r.ParseMultipartForm(maxSettingsForm); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.BusinessParams{}, domain.ErrLogoTooLarge
		}
		return domain.BusinessParams{}, domain.WrapError(err, domain.EINVALID, op, "Invalid form data")
	}
	defer r.MultipartForm.RemoveAll()

	params := domain.BusinessParams{
		BusinessName: strings.TrimSpace(r.FormValue("businessName")),
		Phone:        r.FormValue("phone"),
		GSTIN:        r.FormValue("gstin"),
		Address: domain.Address{
			Street:  r.FormValue("address.street"),
			City:    r.FormValue("address.city"),
			State:   r.FormValue("address.state"),
			Pincode: r.FormValue("address.pincode"),
			Country: r.FormValue("address.country"),
		},
	}

	if raw := strings.TrimSpace(r.FormValue("defaultTaxRate")); raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return params, domain.NewValidationError(op, "defaultTaxRate", "must be a number")
		}
		params.DefaultTaxRate = &rate
	}

	file, header, err := r.FormFile("logo")
	if errors.Is(err, http.ErrMissingFile) {
		return params, nil
	}
	if err != nil {
		return params, domain.WrapError(err, domain.EINVALID, op, "Logo could not be read")
	}
	defer file.Close()

	upload := &domain.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}
	if upload.Size <= service.MaxLogoSize {
		upload.Content, err = io.ReadAll(io.LimitReader(file, service.MaxLogoSize+1))
		if err != nil {
			return params, domain.WrapError(err, domain.EINVALID, op, "Logo could not be read")
		}
	}
	params.Logo = upload
	return params, nil
}

type taxRequest struct {
	DefaultTaxRate decimal.Decimal `json:"defaultTaxRate"`
}

// UpdateTax handles PUT /api/settings/tax
func (h *SettingsHandler) UpdateTax(w http.ResponseWriter, r *http.Request) {
	var req taxRequest
	if err := handler.Decode(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}

	user, err := h.accounts.UpdateTaxRate(r.Context(), domain.RequireOwnerID(r.Context()), req.DefaultTaxRate)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, user)
}

type notificationsRequest struct {
	EmailNotifications *bool `json:"emailNotifications"`
	SMSNotifications   *bool `json:"smsNotifications"`
	ReminderDays       int   `json:"reminderDays"`
}

// UpdateNotifications handles PUT /api/settings/notifications. Omitted
// flags take their defaults: email on, SMS off.
func (h *SettingsHandler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	var req notificationsRequest
	if err := handler.Decode(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}

	settings := domain.NotificationSettings{
		EmailNotifications: req.EmailNotifications == nil || *req.EmailNotifications,
		SMSNotifications:   req.SMSNotifications != nil && *req.SMSNotifications,
		ReminderDays:       req.ReminderDays,
	}

	user, err := h.accounts.UpdateNotifications(r.Context(), domain.RequireOwnerID(r.Context()), settings)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, user)
}
