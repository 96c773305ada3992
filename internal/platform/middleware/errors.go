package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vetcare/practice/internal/platform/apperr"
	"github.com/vetcare/practice/internal/platform/fhir"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidPayload, apperr.KindValidationFailed:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler renders every error returned by a handler as an
// OperationOutcome. Classified errors carry their own message; anything else
// is logged in full and answered with a generic 500.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, outcome := render(err)
		if status == http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("unexpected error")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, outcome)
	}
}

func render(err error) (int, *fhir.OperationOutcome) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		if he.Code >= 500 {
			return he.Code, fhir.ExceptionOutcome()
		}
		code := fhir.IssueTypeProcessing
		switch he.Code {
		case http.StatusNotFound:
			code = fhir.IssueTypeNotFound
		case http.StatusUnauthorized:
			code = fhir.IssueTypeSecurity
		case http.StatusForbidden:
			code = fhir.IssueTypeForbidden
		}
		return he.Code, fhir.NewOperationOutcome(fhir.IssueSeverityError, code, msg)
	}

	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind == apperr.KindUnexpected {
		return http.StatusInternalServerError, fhir.ExceptionOutcome()
	}

	status := StatusFor(ae.Kind)
	switch ae.Kind {
	case apperr.KindValidationFailed:
		return status, fhir.ValidationOutcome(ae.Field, ae.Error())
	case apperr.KindNotFound:
		return status, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeNotFound, ae.Error())
	case apperr.KindConflict:
		return status, fhir.ConflictOutcome(ae.Error())
	default:
		return status, fhir.InvalidOutcome(ae.Error())
	}
}
