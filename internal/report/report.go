// Package report holds the visit report entity and the stores that keep the
// logbook state: the report collection, the completion suggestions and the
// recent-entries ring.
package report

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNotFound is returned when no stored report has the requested id.
	ErrNotFound = errors.New("report not found")
	// ErrIndexOutOfRange is returned when an index-addressed operation points
	// past the current collection, typically because the index went stale.
	ErrIndexOutOfRange = errors.New("report index out of range")
)

// Report is a single customer visit entry.
type Report struct {
	ID              string `json:"id,omitempty"`
	SerialNo        string `json:"serialNo"`
	Date            string `json:"date" validate:"required,calendardate"`
	CustomerName    string `json:"customerName" validate:"required"`
	ReportNo        string `json:"reportNo"`
	ContactPerson   string `json:"contactPerson,omitempty"`
	ContactNo       string `json:"contactNo,omitempty"`
	VisitingPurpose string `json:"visitingPurpose" validate:"required"`
}

// FieldError names a field that failed validation and the rule it broke.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		switch f.Rule {
		case "required":
			parts[i] = f.Field + " is required"
		case "calendardate":
			parts[i] = f.Field + " must be a date in YYYY-MM-DD format"
		default:
			parts[i] = fmt.Sprintf("%s failed %s", f.Field, f.Rule)
		}
	}
	return "invalid report: " + strings.Join(parts, ", ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("calendardate", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks the fields a submission must carry. Stored reports are not
// re-validated; the store accepts whatever it is given.
func (r Report) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return ve
}

// Normalize trims surrounding whitespace from every field.
func (r Report) Normalize() Report {
	r.SerialNo = strings.TrimSpace(r.SerialNo)
	r.Date = strings.TrimSpace(r.Date)
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.ReportNo = strings.TrimSpace(r.ReportNo)
	r.ContactPerson = strings.TrimSpace(r.ContactPerson)
	r.ContactNo = strings.TrimSpace(r.ContactNo)
	r.VisitingPurpose = strings.TrimSpace(r.VisitingPurpose)
	return r
}
