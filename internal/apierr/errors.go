// Package apierr gives every transfer handler one way to fail: wrap the
// underlying error in an AppError and call its Abort, which decides what, if
// anything, reaches the client. Panics are handled by the Recover middleware.
package apierr

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AppError wraps any failure so that the client always receives a uniform
// envelope while the server logs the full cause chain. Authorization
// failures (bad token, inactive session, wrong client id) are always
// constructed with the default status so an attacker cannot distinguish
// "wrong token" from "not yet claimed" from "claimed by someone else".
type AppError struct {
	cause  error
	status int
}

// New wraps err as an AppError with the default 500 status and empty body.
func New(err error) *AppError {
	return &AppError{cause: err, status: http.StatusInternalServerError}
}

// WithStatus returns a copy of e that renders as the given status code
// instead of the default 500. Only use this for conditions that carry no
// security signal: a malformed path, a missing multipart field, an
// out-of-range chunk index.
func (e *AppError) WithStatus(status int) *AppError {
	return &AppError{cause: e.cause, status: status}
}

// Unauthorized constructs the generic authorization failure. It always uses
// the default status: every auth failure mode looks identical to the
// client.
func Unauthorized(err error) *AppError {
	return New(err)
}

func (e *AppError) Error() string {
	return e.cause.Error()
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Abort logs the full error chain and writes the response envelope: the
// configured status with no body, so no internal path, key, or stack trace
// ever reaches the client.
func (e *AppError) Abort(c *gin.Context, log *zerolog.Logger) {
	log.Error().Err(e.cause).Str("path", c.Request.URL.Path).Msg("request failed")
	c.AbortWithStatus(e.status)
}

// Recover returns gin middleware that converts a panic in a later handler
// into the same generic 500 response an AppError produces, logging the
// panic value and stack server-side.
func Recover(log *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("recovered from panic")
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}
