package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"novelhub/pkg/logger"
	"novelhub/pkg/models"
)

var fieldNamesOnce sync.Once

// registerJSONFieldNames makes validator report json names ("targetId")
// instead of Go field names
func registerJSONFieldNames() {
	fieldNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, models.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// respondError writes the failure envelope. Unknown errors become a
// generic 500 and are logged with the request id.
func respondError(c *gin.Context, err error) {
	appErr, ok := models.AsAppError(err)
	if !ok {
		appErr = models.NewInternalError(err)
	}
	if appErr.StatusCode >= 500 {
		logger.WithRequestID(c.Request.Context()).Error("request failed: " + err.Error())
	}
	c.JSON(appErr.StatusCode, appErr.ToHTTPError())
}

// bindJSON decodes the body and converts binding failures to field details
func bindJSON(c *gin.Context, dst interface{}) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	respondError(c, bindingError(err))
	return false
}

func bindingError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return models.NewValidationError("body", "request body is too large")
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = describeRule(fe)
		}
		return models.NewFieldsValidationError(details)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return models.NewValidationError(typeErr.Field, "must be a "+typeErr.Type.String())
	}

	return models.NewBadRequestError("invalid request body")
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

// pathID parses a positive int64 path parameter
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		respondError(c, models.NewValidationError(name, "must be a positive integer"))
		return 0, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter; absent means zero
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		respondError(c, models.NewValidationError(name, "must be an integer"))
		return 0, false
	}
	return v, true
}
