package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/kbmc/portal-api/internal/handler"
	pvalidator "github.com/kbmc/portal-api/pkg/validator"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationConfig represents validation middleware configuration
type ValidationConfig struct {
	CustomErrorMessages map[string]string
}

func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		CustomErrorMessages: map[string]string{
			"required":         "Field is required",
			"oneof":            "Value is not allowed",
			pvalidator.RoleTag: "Invalid role name",
		},
	}
}

// Validation registers the custom binding tags and renders the field errors
// handlers pass to handler.RespondBindError.
func Validation(config ValidationConfig) gin.HandlerFunc {
	if err := pvalidator.RegisterBindings(); err != nil {
		panic(err)
	}

	return func(c *gin.Context) {
		c.Set(handler.ValidationKey, true)
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		var validationErrors []ValidationError
		for _, ginErr := range c.Errors {
			var errs validator.ValidationErrors
			if !errors.As(ginErr.Err, &errs) {
				continue
			}
			for _, e := range errs {
				msg := config.CustomErrorMessages[e.Tag()]
				if msg == "" {
					msg = e.Error()
				}
				validationErrors = append(validationErrors, ValidationError{
					Field:   e.Field(),
					Message: msg,
				})
			}
		}

		if len(validationErrors) > 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"status":  "error",
				"message": validationErrors[0].Message,
				"errors":  validationErrors,
			})
		}
	}
}
