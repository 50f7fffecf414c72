// Package in holds the inbound HTTP adapter: fiber handlers for the
// transfer, balance, history and health endpoints.
package in

import (
	"github.com/gofiber/fiber/v2"

	"github.com/walletledger/service/internal/apperr"
)

// ResponseError is the JSON body returned for any failed request.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OK writes a 200 JSON response.
func OK(c *fiber.Ctx, body any) error {
	return c.Status(fiber.StatusOK).JSON(body)
}

// WithError maps err to its transport status code and a ResponseError body.
// An *apperr.Error carries its own Kind/HTTPStatus; any other error is
// surfaced as an opaque 500 INTERNAL_ERROR to avoid leaking internals.
func WithError(c *fiber.Ctx, err error) error {
	var appErr *apperr.Error
	if e, ok := err.(*apperr.Error); ok {
		appErr = e
	} else {
		appErr = apperr.Wrap(apperr.KindInternalError, "an internal error occurred", err)
	}

	return c.Status(appErr.HTTPStatus()).JSON(ResponseError{
		Code:    string(appErr.Kind),
		Message: appErr.Message,
	})
}
