package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medinexus/twin/pkg/apperr"
)

// ErrorHandler translates service errors into JSON responses at the request
// boundary. Classified errors map to their status; anything unclassified is a
// 500 with a generic message so internals never leak.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		rid, _ := c.Get("request_id").(string)

		status := http.StatusInternalServerError
		body := map[string]interface{}{"error": "internal server error"}

		switch kind := apperr.KindOf(err); kind {
		case apperr.KindValidation:
			status = http.StatusBadRequest
			body["error"] = err.Error()
			if fields := apperr.FieldsOf(err); len(fields) > 0 {
				body["fields"] = fields
			}
		case apperr.KindNotFound:
			status = http.StatusNotFound
			body["error"] = err.Error()
		case apperr.KindPersistence:
			status = http.StatusInternalServerError
			body["error"] = "storage failure"
			logger.Error().Err(err).Str("request_id", rid).Msg("persistence error")
		case apperr.KindUpstream:
			status = http.StatusBadGateway
			body["error"] = err.Error()
			logger.Warn().Err(err).Str("request_id", rid).Msg("upstream provider error")
		default:
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
				body["error"] = he.Message
			} else {
				logger.Error().Err(err).Str("request_id", rid).Msg("unhandled error")
			}
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}
