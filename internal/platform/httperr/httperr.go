package httperr

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// ===== Error model =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code     `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func ErrInvalid(msg string) *APIError   { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrUnauth(msg string) *APIError    { return &APIError{Code: CodeUnauthenticated, Message: msg} }
func ErrForbidden(msg string) *APIError { return &APIError{Code: CodeForbidden, Message: msg} }
func ErrNotFound(msg string) *APIError  { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError  { return &APIError{Code: CodeConflict, Message: msg} }
func ErrInternal(msg string) *APIError  { return &APIError{Code: CodeInternal, Message: msg} }

func Status(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeUnauthenticated:
			return http.StatusUnauthorized
		case CodeForbidden:
			return http.StatusForbidden
		case CodeNotFound:
			return http.StatusNotFound
		case CodeConflict:
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}

type errDTO struct {
	Error *APIError `json:"error"`
}

// Body: APIError 以外は中身を隠して INTERNAL にする
func Body(err error) errDTO {
	var api *APIError
	if errors.As(err, &api) {
		return errDTO{Error: api}
	}
	return errDTO{Error: ErrInternal("internal server error")}
}

// Write は err をステータスとJSONに変換して返す。5xx はログに残す。
func Write(c *gin.Context, err error) {
	status := Status(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, Body(err))
}

// Abort は middleware 用
func Abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(Status(err), Body(err))
}

// ===== binding / validation =====

// FromBind converts a ShouldBindJSON error into an INVALID_ARGUMENT error.
// Validation failures become "field: message" entries joined into the message.
func FromBind(err error) *APIError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ErrInvalid("invalid json")
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s: %s", fe.Field(), describe(fe)))
	}
	return &APIError{
		Code:    CodeInvalidArgument,
		Message: strings.Join(fields, "; "),
		Fields:  fields,
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min", "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", fe.Param())
	case "email":
		return "Enter a valid email address."
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}

// UseJSONFieldNames makes gin's validator report json tag names (reg_num) instead of Go field names (RegNum).
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
}
