package handler

import (
	"encoding/json"
	"errors"
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

type errorEnvelope struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.ETOOLARGE, http.StatusRequestEntityTooLarge},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EEXTERNAL, http.StatusBadGateway},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"unknown_code", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, ErrorCodeToHTTPStatus(tt.code))
		})
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "not found",
			err:            domain.ErrInvoiceNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   domain.ENOTFOUND,
		},
		{
			name:           "conflict",
			err:            domain.ErrClientEmailTaken,
			expectedStatus: http.StatusConflict,
			expectedCode:   domain.ECONFLICT,
		},
		{
			name:           "external",
			err:            domain.External(errors.New("timeout"), "invoice.send", "Failed to send email"),
			expectedStatus: http.StatusBadGateway,
			expectedCode:   domain.EEXTERNAL,
		},
		{
			name:           "plain error is internal",
			err:            errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   domain.EINTERNAL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ErrorResponse(rec, httptest.NewRequest(http.MethodGet, "/api/invoices", nil), tt.err)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.expectedCode, decodeEnvelope(t, rec).Error.Code)
		})
	}
}

func TestErrorResponse_InternalHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := domain.Internal(nil, "db.query", "failed to connect to database at 192.168.1.100:5432")
	ErrorResponse(rec, httptest.NewRequest(http.MethodGet, "/test", nil), err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "An internal error occurred. Please try again later.", decodeEnvelope(t, rec).Error.Message)
}

func TestErrorResponseWithStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorResponseWithStatus(rec, httptest.NewRequest(http.MethodPost, "/", nil), http.StatusBadRequest,
		domain.Unauthorized("payment.webhook", "Invalid signature"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.EUNAUTHORIZED, decodeEnvelope(t, rec).Error.Code)
}

func TestValidationErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	err := domain.NewValidationError("client.create", "name", "is required")
	err = domain.AddFieldError(err, "email", "must be a valid email")

	ValidationErrorResponse(rec, httptest.NewRequest(http.MethodPost, "/", nil), err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, domain.EINVALID, env.Error.Code)
	assert.Equal(t, map[string]string{"name": "is required", "email": "must be a valid email"}, env.Error.Fields)

	rec = httptest.NewRecorder()
	ValidationErrorResponse(rec, httptest.NewRequest(http.MethodPost, "/", nil), domain.ErrClientNotFound)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConvenienceResponses(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	rec := httptest.NewRecorder()
	NotFoundResponse(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	UnauthorizedResponse(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	InternalErrorResponse(rec, req, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDecode(t *testing.T) {
	type body struct {
		Name  string                 `json:"name" validate:"required"`
		Email string                 `json:"email" validate:"required,email"`
		Items []domain.LineItemInput `json:"items" validate:"required,min=1,dive"`
	}

	tests := []struct {
		name       string
		payload    string
		wantCode   string
		wantFields []string
	}{
		{name: "valid", payload: `{"name":"A","email":"a@x.in","items":[{"description":"d","quantity":1,"unitPrice":"5"}]}`},
		{name: "empty", payload: ``, wantCode: domain.EINVALID},
		{name: "malformed", payload: `{"name":`, wantCode: domain.EINVALID},
		{
			name:       "fields",
			payload:    `{"email":"nope","items":[{"quantity":0}]}`,
			wantCode:   domain.EINVALID,
			wantFields: []string{"name", "email", "items[0].description", "items[0].quantity"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			var dst body
			err := Decode(req, &dst)
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.True(t, decimal.NewFromInt(5).Equal(dst.Items[0].UnitPrice))
				return
			}
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
			fields := domain.GetValidationFields(err)
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestPathUUID(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetPathValue("id", id.String())

	got, err := PathUUID(req, "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	req.SetPathValue("id", "nope")
	_, err = PathUUID(req, "id")
	assert.True(t, domain.IsCode(err, domain.EINVALID))
}
