package helper

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"content-hub-cms/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"gopkg.in/go-playground/validator.v9"
	en_translations "gopkg.in/go-playground/validator.v9/translations/en"
)

// HTTPHelper renders the response envelope. Success is {success:true, ...data};
// validation and business failures are in-band {success:false, message?, errors?}
// with HTTP 200.
type HTTPHelper struct {
	Validate   *validator.Validate
	Translator ut.Translator
}

func NewHTTPHelper() *HTTPHelper {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")

	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = en_translations.RegisterDefaultTranslations(validate, trans)

	return &HTTPHelper{Validate: validate, Translator: trans}
}

// ValidateStruct runs struct validation and converts failures to a
// models.ValidationError keyed by the JSON path of each field.
func (u *HTTPHelper) ValidateStruct(v interface{}) error {
	err := u.Validate.Struct(v)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	errorResponse := map[string][]string{}
	for _, fieldErr := range validationErrors {
		errKey := fieldPath(fieldErr.Namespace())
		errorResponse[errKey] = append(errorResponse[errKey], fieldErr.Translate(u.Translator))
	}
	return &models.ValidationError{Errors: errorResponse}
}

// GetStatusCode maps the error taxonomy onto HTTP statuses.
func (u *HTTPHelper) GetStatusCode(err error) int {
	var (
		notFound   *models.NotFoundError
		processing *models.ProcessingError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &processing):
		return http.StatusInternalServerError
	case models.IsDomainError(err):
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// SendError renders any service error in the envelope.
func (u *HTTPHelper) SendError(c *gin.Context, err error) {
	body := gin.H{"success": false}
	var validation *models.ValidationError
	switch {
	case errors.As(err, &validation):
		body["errors"] = validation.Errors
	case models.IsDomainError(err):
		body["message"] = err.Error()
	default:
		body["message"] = "internal server error"
	}
	c.JSON(u.GetStatusCode(err), body)
}

// SendBadRequest sends an in-band failure with a single message.
func (u *HTTPHelper) SendBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": false, "message": message})
}

// SendUnauthorizedError is used by the auth middleware only.
func (u *HTTPHelper) SendUnauthorizedError(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": message})
}

// SendSuccess merges data into the success envelope.
func (u *HTTPHelper) SendSuccess(c *gin.Context, data gin.H) {
	body := gin.H{"success": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// BindJSON decodes and validates a request body. A failure has already been
// rendered when it returns false.
func (u *HTTPHelper) BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		u.SendBadRequest(c, "Invalid request body: "+err.Error())
		return false
	}
	if err := u.ValidateStruct(req); err != nil {
		u.SendError(c, err)
		return false
	}
	return true
}

// fieldPath strips the root struct name from a validator namespace:
// "SubmissionRequest.material_state.localizations[0].title" becomes
// "material_state.localizations[0].title". Anonymous embeds carry no json
// name, so their Go type name segment is dropped as well.
func fieldPath(namespace string) string {
	segments := strings.Split(namespace, ".")
	if len(segments) == 1 {
		return Underscore(namespace)
	}
	segments = segments[1:]
	path := segments[:0]
	for i, segment := range segments {
		if i < len(segments)-1 && startsUpper(segment) {
			continue
		}
		path = append(path, segment)
	}
	return strings.Join(path, ".")
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}
