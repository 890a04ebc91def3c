package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// errorBody is the JSON error envelope shared by every route.
type errorBody struct {
	Detail string `json:"detail"`
}

// writeError writes {"detail": msg} unless the response is already committed.
func writeError(c echo.Context, status int, msg string) error {
	if c.Response().Committed {
		return nil
	}
	return c.JSON(status, errorBody{Detail: msg})
}

// ErrorHandler renders every error as {"detail": ...}. Install it as
// echo.HTTPErrorHandler.
func ErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch m := he.Message.(type) {
		case string:
			msg = m
		case nil:
			msg = http.StatusText(code)
		default:
			msg = fmt.Sprint(m)
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = writeError(c, code, msg)
}
