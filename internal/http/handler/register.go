package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"accountapi/internal/model"
	"accountapi/internal/scratch"
	"accountapi/internal/service"
)

// RegisterUser handles POST /api/v1/users/register (multipart/form-data).
// It stages the incoming media files to scratch storage and hands the
// request to the registration service; errors propagate to the global
// ErrorHandler by ordinary return.
func RegisterUser(svc service.RegistrationService, staging *scratch.Dir) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := model.RegistrationRequest{
			FullName: c.FormValue("fullName"),
			Username: c.FormValue("username"),
			Email:    c.FormValue("email"),
			Password: c.FormValue("password"),
		}

		// At most one file per field; an absent optional field is simply
		// not staged, never an error — the validator decides whether that
		// matters.
		files := make(map[string]*scratch.File)
		for _, field := range []string{service.FieldAvatar, service.FieldCoverImage} {
			fh, err := c.FormFile(field)
			if err != nil {
				continue
			}
			f, err := staging.Save(fh, field)
			if err != nil {
				for _, staged := range files {
					_ = staging.Remove(staged)
				}
				return fmt.Errorf("stage %s: %w", field, err)
			}
			files[field] = f
		}

		user, err := svc.Register(c.UserContext(), req, files)
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).
			JSON(NewEnvelope(fiber.StatusCreated, user, "user registered successfully"))
	}
}
