package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const (
	// LocalUserID is the fiber local holding the authenticated user id (uint64).
	LocalUserID = "userID"
	// LocalPermissions holds the effective permissions for templates.
	LocalPermissions = "permissions"
)

// UserIDFromContext returns the user id set by the session middleware.
func UserIDFromContext(c *fiber.Ctx) (uint64, bool) {
	id, ok := c.Locals(LocalUserID).(uint64)

	return id, ok && id > 0
}

func guard(c *fiber.Ctx, check func(userID uint64) (bool, error), perms ...string) error {
	userID, ok := UserIDFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
	}

	allowed, err := check(userID)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", userID).Strs("permissions", perms).
			Msg("failed to check permission")

		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	if !allowed {
		log.Warn().Uint64("user_id", userID).Strs("permissions", perms).Str("path", c.Path()).
			Msg("user lacks required permission")

		return c.Status(fiber.StatusForbidden).SendString("Forbidden")
	}

	return c.Next()
}

// RequirePermission responds 401 without a user, 403 without the permission.
func RequirePermission(svc *Service, permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return guard(c, func(id uint64) (bool, error) {
			return svc.HasPermission(id, permission)
		}, permission)
	}
}

// RequireAnyPermission passes when the user holds at least one of permissions.
func RequireAnyPermission(svc *Service, permissions ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return guard(c, func(id uint64) (bool, error) {
			return svc.HasAnyPermission(id, permissions)
		}, permissions...)
	}
}

// AddPermissionsToLocals exposes the user's permissions and a hasPermission
// func to templates. Requests without a user pass through untouched.
func AddPermissionsToLocals(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := UserIDFromContext(c)
		if !ok {
			return c.Next()
		}

		perms, err := svc.GetUserPermissions(userID)
		if err != nil {
			log.Error().Err(err).Uint64("user_id", userID).Msg("failed to get user permissions")

			return c.Next()
		}

		held := make(map[string]bool, len(perms))
		for _, p := range perms {
			held[p] = true
		}

		c.Locals(LocalPermissions, perms)
		c.Locals("hasPermission", func(perm string) bool { return held[perm] })

		return c.Next()
	}
}
