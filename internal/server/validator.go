package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts validator/v10 to echo's Validator so handlers can call c.Validate.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return jsonName(f.Tag.Get("json"), f.Tag.Get("form"), f.Name)
	})
	return &Validator{validate: v}
}

// Validate returns a 400 *echo.HTTPError naming the first failing field.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return echo.NewHTTPError(http.StatusBadRequest, fieldMessage(fe))
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is required", fe.Field())
	case "email":
		return fmt.Sprintf("'%s' must be an email address", fe.Field())
	case "uuid":
		return fmt.Sprintf("'%s' must be a uuid", fe.Field())
	case "max":
		return fmt.Sprintf("'%s' is too long", fe.Field())
	default:
		return fmt.Sprintf("'%s' is invalid", fe.Field())
	}
}

func jsonName(jsonTag, formTag, fallback string) string {
	for _, tag := range []string{jsonTag, formTag} {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return fallback
}
