package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/lingo/core/user"
)

// roleMiddleware only lets through the profiles having one of roles. Admins always pass.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if usr.IsAdmin() {
				return next(ctx)
			}
			for _, role := range roles {
				if usr.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleAdmin)
}
