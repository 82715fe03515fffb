package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dukerupert/papertrail/internal/domain"
)

// ErrEmptyBody is returned by Decode when the request has no body.
var ErrEmptyBody = &domain.Error{Code: domain.EINVALID, Message: "Request body is required"}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode reads a JSON body into dst and validates it with its struct tags.
// Failures come back as domain errors ready for ErrorResponse.
func Decode(r *http.Request, dst any) error {
	const op = "handler.decode"

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return domain.Errorf(domain.ETOOLARGE, op, "Request body too large")
		case errors.Is(err, io.EOF):
			return ErrEmptyBody
		default:
			return domain.WrapError(err, domain.EINVALID, op, "Invalid JSON body")
		}
	}
	return Validate(dst)
}

// Validate runs struct tag validation and converts failures into a
// field-level domain.ValidationError.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Invalid("handler.validate", err.Error())
	}

	ve := &domain.ValidationError{Op: "handler.validate", Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		ve.Fields[fieldPath(fe)] = fieldMessage(fe)
	}
	return ve
}

// fieldPath drops the root struct name from the namespace so nested
// fields read as "items[0].description".
func fieldPath(fe validator.FieldError) string {
	_, path, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return fe.Field()
	}
	return path
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}

// PathUUID parses a UUID path parameter.
func PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domain.Invalid("handler.path", "Invalid "+name)
	}
	return id, nil
}
