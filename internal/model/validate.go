package model

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidScenario is matched by every *ValidationError.
var ErrInvalidScenario = errors.New("invalid scenario")

// FieldError describes one violated constraint, named by its file key.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates all constraint violations of a scenario.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid scenario: " + strings.Join(parts, "; ")
}

// Is reports ErrInvalidScenario as a match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidScenario
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func scenarioValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate.RegisterStructValidation(validateStages, File{})
	})
	return validate
}

// validateStages enforces the cross-field stage invariants: n_r0 matches the
// three parallel arrays, and start days strictly increase.
func validateStages(sl validator.StructLevel) {
	f, ok := sl.Current().Interface().(File)
	if !ok {
		return
	}
	n := len(f.Day)
	if f.NR0 != nil && *f.NR0 != n {
		sl.ReportError(f.Day, "day", "Day", "stagecount", strconv.Itoa(*f.NR0))
	}
	if f.DeltaR0 != nil && len(f.DeltaR0) != n {
		sl.ReportError(f.DeltaR0, "delta_r0", "DeltaR0", "stagelen", strconv.Itoa(n))
	}
	if f.PCont != nil && len(f.PCont) != n {
		sl.ReportError(f.PCont, "pcont", "PCont", "stagelen", strconv.Itoa(n))
	}
	for i := 1; i < n; i++ {
		if f.Day[i] <= f.Day[i-1] {
			sl.ReportError(f.Day, "day", "Day", "increasing", strconv.Itoa(i))
			break
		}
	}
}

// Validate checks presence, ranges and stage consistency of f.
func (f File) Validate() error {
	err := scenarioValidator().Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate scenario: %w", err)
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: describe(fe)})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be >= " + fe.Param()
	case "gt":
		return "must be > " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "datetime":
		return "must be a date formatted YYYY-MM-DD"
	case "stagecount":
		return "has a different length than n_r0 (" + fe.Param() + ")"
	case "stagelen":
		return "must have one entry per stage (" + fe.Param() + ")"
	case "increasing":
		return "start days must be strictly increasing (entry " + fe.Param() + ")"
	}
	return "failed " + fe.Tag()
}
