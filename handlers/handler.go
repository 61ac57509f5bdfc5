// Package handlers binds HTTP requests to the order, menu and user services.
// Handlers never write error responses themselves; they attach the error with
// c.Error and let middleware.ErrorResponder render it.
package handlers

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"restaurant-api/apperrors"
	"restaurant-api/middleware"
	"restaurant-api/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	orders *services.OrderService
	menu   *services.MenuService
	users  *services.UserService
	jwt    *middleware.JWT
	store  Pinger
	lg     *zap.Logger
}

func New(
	orders *services.OrderService,
	menu *services.MenuService,
	users *services.UserService,
	jwt *middleware.JWT,
	store Pinger,
	lg *zap.Logger,
) *Handler {
	registerValidators()
	return &Handler{
		orders: orders,
		menu:   menu,
		users:  users,
		jwt:    jwt,
		store:  store,
		lg:     lg.Named("http"),
	}
}

var registerOnce sync.Once

// registerValidators teaches gin's validator to report json field names and
// to check the enumerated model types.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return ""
		})
		_ = v.RegisterValidation("enum", func(fl validator.FieldLevel) bool {
			e, ok := fl.Field().Interface().(interface{ Valid() bool })
			return ok && e.Valid()
		})
	})
}

// bindError converts a binding failure into a validation error naming the
// offending fields.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apperrors.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apperrors.FieldError{
				Field:   fieldPath(fe),
				Message: fieldMessage(fe),
			})
		}
		return apperrors.Validation("invalid request", fields...)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apperrors.Validation("invalid request body", apperrors.FieldError{
			Field:   typeErr.Field,
			Message: "cannot be a " + typeErr.Value,
		})
	}
	return apperrors.Validation("invalid request body", apperrors.FieldError{
		Field:   "body",
		Message: err.Error(),
	})
}

// fieldPath drops the request struct name from the namespace, leaving
// "items[0].quantity" style paths.
func fieldPath(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "cannot exceed " + fe.Param()
	case "enum":
		return "unsupported value"
	}
	return "is invalid"
}
