package services

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/coursehub/apiserver/internal/store"
	"github.com/go-playground/validator/v10"
)

// ValidationError carries per-field messages for a rejected payload.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ErrInvalidPayload is returned when a partial update cannot be applied
// to the stored record.
var ErrInvalidPayload = errors.New("invalid payload")

// NewValidator returns a validator that reports fields by their JSON name.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("recording_url", isRecordingURL)
	return v
}

// recordingSchemes are the URL schemes a lesson recording may use.
var recordingSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ftp":   true,
	"ftps":  true,
}

func isRecordingURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return recordingSchemes[strings.ToLower(u.Scheme)] && u.Host != ""
}

func validateRecord(v *validator.Validate, record any) error {
	err := v.Struct(record)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := fieldName(fe)
		if _, seen := fields[name]; !seen {
			fields[name] = fieldMessage(fe)
		}
	}
	return &ValidationError{Fields: fields}
}

// fieldName drops the struct prefix and any slice index from the namespace,
// so course[2] reports as course.
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	if i := strings.IndexByte(ns, '['); i >= 0 {
		ns = ns[:i]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	isText := fe.Kind() == reflect.String
	isList := fe.Kind() == reflect.Slice
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		if isText {
			return fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())
		}
		return fmt.Sprintf("ensure this value is less than or equal to %s", fe.Param())
	case "min":
		if isList {
			return "this list may not be empty"
		}
		if isText {
			return fmt.Sprintf("ensure this field has at least %s characters", fe.Param())
		}
		return fmt.Sprintf("ensure this value is greater than or equal to %s", fe.Param())
	case "url", "recording_url":
		return "enter a valid URL"
	case "gt":
		return "invalid pk - object does not exist"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// asValidationError converts store constraint violations into a
// ValidationError and leaves other errors untouched.
func asValidationError(err error) error {
	var cerr *store.ConstraintError
	if errors.As(err, &cerr) {
		return &ValidationError{Fields: map[string]string{cerr.Field: cerr.Reason}}
	}
	return err
}
