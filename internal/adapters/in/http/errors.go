package http

import (
	"errors"
	"net/http"

	"dispatch/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var statusByCode = map[string]int{
	errs.CodeNotFound:           http.StatusNotFound,
	errs.CodeInvalidTransition:  http.StatusConflict,
	errs.CodeRiderUnavailable:   http.StatusConflict,
	errs.CodeOrderNotAssignable: http.StatusConflict,
	errs.CodeInvalidValue:       http.StatusBadRequest,
	errs.CodeTimeout:            http.StatusGatewayTimeout,
	errs.CodeWriteFailed:        http.StatusServiceUnavailable,
	errs.CodeInternal:           http.StatusInternalServerError,
}

// StatusFor returns the HTTP status of an engine error.
func StatusFor(err error) int {
	if status, ok := statusByCode[errs.Code(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c echo.Context, err error) error {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err)
		msg = http.StatusText(status)
	}
	return c.JSON(status, ErrorResponse{Code: errs.Code(err), Message: msg})
}

// errorHandler renders errors returned by echo itself (unknown routes, bad binds) in the same
// shape as engine errors.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, status, msg := errs.CodeInternal, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		msg = http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		switch status {
		case http.StatusNotFound:
			code = errs.CodeNotFound
		case http.StatusBadRequest:
			code = errs.CodeInvalidValue
		}
	}
	_ = c.JSON(status, ErrorResponse{Code: code, Message: msg})
}
