package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/kbmc/portal-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondError writes err with the status its kind maps to and records it on
// the context for the logging middleware.
func RespondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(apperrors.StatusCode(err), NewErrorResponse(apperrors.Message(err)))
}

// ValidationKey is set by the validation middleware when it will render
// field errors for the request.
const ValidationKey = "validation_renderer"

// RespondBindError answers a failed ShouldBind. Field validation failures are
// left on the context for the validation middleware to render; without it, or
// for a malformed body, a plain 400 is written.
func RespondBindError(c *gin.Context, err error) {
	_ = c.Error(err).SetType(gin.ErrorTypeBind)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && c.GetBool(ValidationKey) {
		c.Abort()
		return
	}
	c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request body"))
}

// ParseID reads a positive integer path parameter.
func ParseID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewBadRequest(fmt.Sprintf("invalid %s", name), err)
	}
	return id, nil
}

// CreatedID is the body returned by create endpoints.
type CreatedID struct {
	ID int64 `json:"id"`
}
