package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateOutput, OutputConfig{})
	return v
}

// validateOutput requires a DSN and table when writing to a database.
func validateOutput(sl validator.StructLevel) {
	out := sl.Current().Interface().(OutputConfig)
	if out.Format != "sql" {
		return
	}
	if out.SQL.DSN == "" {
		sl.ReportError(out.SQL.DSN, "dsn", "DSN", "required_for_sql", "")
	}
	if out.SQL.Table == "" {
		sl.ReportError(out.SQL.Table, "table", "Table", "required_for_sql", "")
	}
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return err
	}

	var errs *multierror.Error
	for _, fe := range valErrs {
		errs = multierror.Append(errs, fmt.Errorf("%s: %s", fieldPath(fe.Namespace()), describe(fe)))
	}
	return errs.ErrorOrNil()
}

// fieldPath turns "Config.output.sql" into "output.sql".
func fieldPath(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		return ns
	}
	return rest
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_for_sql":
		return "is required"
	case "required_without":
		return "is required unless mappings.counterparty is set"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	case "len":
		return fmt.Sprintf("must be exactly %s character, got %q", fe.Param(), fe.Value())
	default:
		return strings.TrimSpace(fe.Tag() + " " + fe.Param())
	}
}
