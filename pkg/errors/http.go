package errors

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ToHTTPError converts err into an echo error with a {"error","code"} body.
// Internal errors never leak their cause to the client.
func ToHTTPError(err error) *echo.HTTPError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if As(err, &appErr) {
		httpStatus := ToHTTPStatus(appErr.Code())
		message := http.StatusText(httpStatus)
		if httpStatus < http.StatusInternalServerError {
			message = innermost(appErr).Message()
		}
		return echo.NewHTTPError(httpStatus, echo.Map{
			"error": message,
			"code":  appErr.Code(),
		}).SetInternal(err)
	}

	var echoErr *echo.HTTPError
	if As(err, &echoErr) {
		return echoErr
	}

	return echo.NewHTTPError(http.StatusInternalServerError, echo.Map{
		"error": http.StatusText(http.StatusInternalServerError),
		"code":  ErrInternal,
	}).SetInternal(err)
}

// innermost returns the deepest AppError in the chain, which carries the
// reason the caller should see.
func innermost(appErr *AppError) *AppError {
	for {
		var next *AppError
		if appErr.err == nil || !As(appErr.err, &next) {
			return appErr
		}
		appErr = next
	}
}
