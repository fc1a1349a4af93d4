package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"accountapi/internal/apperr"
)

// ErrorHandler returns the Fiber global error handler — the single place
// every pipeline failure ends up, whether a handler returned it, a
// middleware propagated it, or the recover middleware turned a panic into
// it. Classified errors are mapped through the apperr kind→status table;
// router-level fiber errors keep their own status; everything else becomes
// a 500 without leaking internal detail.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			// 404, 405, body too large, ... — fiber's standard messages are safe.
			return c.Status(fe.Code).JSON(newErrorEnvelope(fe.Code, fe.Message, nil))
		}

		ae := apperr.From(err)
		status := ae.StatusCode()
		return c.Status(status).JSON(newErrorEnvelope(status, ae.Message, ae.Details))
	}
}
