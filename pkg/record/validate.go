package record

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/godeps/schoolsdk-go/pkg/apierror"
)

const dateLayout = "2006-01-02"

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validate checks a record locally before it is submitted. Failures come
// back as a KindValidation error carrying per-field detail and never reach
// the network.
func Validate(rec any) error {
	v := instance()
	err := v.Struct(rec)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("record: validate: %w", err)
	}
	fields := make([]apierror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apierror.FieldError{
			Field:   fe.Field(),
			Message: messageFor(fe),
		})
	}
	return apierror.Validation(fmt.Sprintf("validate %T", rec), fields...)
}

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// report wire field names, not Go ones
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		// date-only string in backend wire format
		_ = validate.RegisterValidation("dateonly", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(dateLayout, fl.Field().String())
			return err == nil
		})
		// record/visit dates may not be in the future
		_ = validate.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
			parsed, err := time.Parse(dateLayout, fl.Field().String())
			if err != nil {
				// dateonly reports the format problem
				return true
			}
			today := time.Now().Format(dateLayout)
			return parsed.Format(dateLayout) <= today
		})
	})
	return validate
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "numeric":
		return "must contain digits only"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "dateonly":
		return "must be a YYYY-MM-DD date"
	case "notfuture":
		return "must not be in the future"
	default:
		return fe.Tag()
	}
}
